package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUpstreamURL is the public species nutrition endpoint.
const DefaultUpstreamURL = "https://www.fishwatch.gov/api/species"

// Config holds application configuration.
type Config struct {
	// UpstreamURL is the species endpoint. It must answer GET with a JSON array.
	UpstreamURL string `json:"upstream_url,omitempty"`

	// UpstreamTimeoutSeconds bounds a single upstream request at the transport
	// level. It must be positive; 0 in the file means the default.
	UpstreamTimeoutSeconds int `json:"upstream_timeout_seconds,omitempty"`

	// UpstreamRPS caps outgoing requests per second across all sessions.
	UpstreamRPS int `json:"upstream_rps,omitempty"`

	// UserAgent is sent with every upstream request. Empty means "fishfacts/<version>".
	UserAgent string `json:"user_agent,omitempty"`

	// Bind and Port are the web UI listen address.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// SessionTTLMinutes is how long an idle browser session is kept in memory.
	SessionTTLMinutes int `json:"session_ttl_minutes,omitempty"`

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `json:"log_level,omitempty"`

	// AboutMarkdown is rendered under the page title.
	AboutMarkdown string `json:"about_markdown,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		UpstreamURL:            DefaultUpstreamURL,
		UpstreamTimeoutSeconds: 15,
		UpstreamRPS:            5,
		Bind:                   "127.0.0.1",
		Port:                   8080,
		SessionTTLMinutes:      30,
		LogLevel:               "info",
		AboutMarkdown:          "Nutrition facts for U.S. seafood species, from the *FishWatch* dataset.",
	}
}

// UpstreamTimeout returns the upstream timeout as a duration.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

// SessionTTL returns the idle session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Load loads configuration from baseDir/config.json, then applies environment
// overrides (including baseDir/.env.local and ./.env.local when present).
// Returns default config if neither file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.fishfacts.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}

	// godotenv.Load never overrides variables already set in the environment.
	for _, p := range []string{filepath.Join(baseDir, ".env.local"), ".env.local"} {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
	}

	overlay, err := FromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	return Merge(cfg, overlay), nil
}

// FromEnv builds a config overlay from FISHFACTS_* variables.
// Unset variables leave the corresponding field zero-valued. Numeric
// variables must be positive, since zero would read as unset.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, n)
		}
		*dst = n
		return nil
	}

	str("FISHFACTS_UPSTREAM_URL", &cfg.UpstreamURL)
	str("FISHFACTS_USER_AGENT", &cfg.UserAgent)
	str("FISHFACTS_BIND", &cfg.Bind)
	str("FISHFACTS_LOG_LEVEL", &cfg.LogLevel)

	for key, dst := range map[string]*int{
		"FISHFACTS_UPSTREAM_TIMEOUT_SECONDS": &cfg.UpstreamTimeoutSeconds,
		"FISHFACTS_UPSTREAM_RPS":             &cfg.UpstreamRPS,
		"FISHFACTS_PORT":                     &cfg.Port,
		"FISHFACTS_SESSION_TTL_MINUTES":      &cfg.SessionTTLMinutes,
	} {
		if err := num(key, dst); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		UpstreamURL:            firstString(overlay.UpstreamURL, base.UpstreamURL),
		UpstreamTimeoutSeconds: firstInt(overlay.UpstreamTimeoutSeconds, base.UpstreamTimeoutSeconds),
		UpstreamRPS:            firstInt(overlay.UpstreamRPS, base.UpstreamRPS),
		UserAgent:              firstString(overlay.UserAgent, base.UserAgent),
		Bind:                   firstString(overlay.Bind, base.Bind),
		Port:                   firstInt(overlay.Port, base.Port),
		SessionTTLMinutes:      firstInt(overlay.SessionTTLMinutes, base.SessionTTLMinutes),
		LogLevel:               firstString(overlay.LogLevel, base.LogLevel),
		AboutMarkdown:          firstString(overlay.AboutMarkdown, base.AboutMarkdown),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.UpstreamURL, "http://") && !strings.HasPrefix(c.UpstreamURL, "https://") {
		return fmt.Errorf("upstream_url must be an http(s) URL, got %q", c.UpstreamURL)
	}
	if c.UpstreamTimeoutSeconds <= 0 {
		return fmt.Errorf("upstream_timeout_seconds must be positive")
	}
	if c.UpstreamRPS <= 0 {
		return fmt.Errorf("upstream_rps must be positive")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}
	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("session_ttl_minutes must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug|info|warn|error, got %q", c.LogLevel)
	}
	return nil
}

func firstString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
