package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.UpstreamURL != def.UpstreamURL {
		t.Errorf("UpstreamURL = %q, want %q", cfg.UpstreamURL, def.UpstreamURL)
	}
	if cfg.Port != def.Port {
		t.Errorf("Port = %d, want %d", cfg.Port, def.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"port": 9090, "upstream_url": "http://localhost:1234/species"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.UpstreamURL != "http://localhost:1234/species" {
		t.Errorf("UpstreamURL = %q", cfg.UpstreamURL)
	}
	// Unset fields keep defaults.
	if cfg.UpstreamRPS != DefaultConfig().UpstreamRPS {
		t.Errorf("UpstreamRPS = %d, want default", cfg.UpstreamRPS)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(`{"port": 9090}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("FISHFACTS_PORT", "7070")
	t.Setenv("FISHFACTS_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Port = %d, want 7070 (env override)", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	dotenv := "FISHFACTS_UPSTREAM_RPS=2\nFISHFACTS_USER_AGENT=test-agent\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".env.local"), []byte(dotenv), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	// godotenv sets process env; make sure the test cleans it up.
	t.Setenv("FISHFACTS_UPSTREAM_RPS", "")
	t.Setenv("FISHFACTS_USER_AGENT", "")
	os.Unsetenv("FISHFACTS_UPSTREAM_RPS")
	os.Unsetenv("FISHFACTS_USER_AGENT")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UpstreamRPS != 2 {
		t.Errorf("UpstreamRPS = %d, want 2", cfg.UpstreamRPS)
	}
	if cfg.UserAgent != "test-agent" {
		t.Errorf("UserAgent = %q, want test-agent", cfg.UserAgent)
	}
}

func TestFromEnv_InvalidInteger(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "FISHFACTS_PORT" {
			return "eighty", true
		}
		return "", false
	}

	if _, err := FromEnv(lookup); err == nil {
		t.Fatal("FromEnv() expected error for non-integer port")
	}
}

func TestFromEnv_NonPositive(t *testing.T) {
	for _, key := range []string{"FISHFACTS_UPSTREAM_TIMEOUT_SECONDS", "FISHFACTS_UPSTREAM_RPS", "FISHFACTS_SESSION_TTL_MINUTES"} {
		t.Run(key, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				if k == key {
					return "0", true
				}
				return "", false
			}
			if _, err := FromEnv(lookup); err == nil {
				t.Fatalf("FromEnv() expected error for %s=0", key)
			}
		})
	}
}

func TestLoad_ZeroTimeoutInFileMeansDefault(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(`{"upstream_timeout_seconds": 0}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.UpstreamTimeout() != 15*time.Second {
		t.Errorf("UpstreamTimeout() = %v, want 15s", cfg.UpstreamTimeout())
	}
}

func TestLoad_ZeroTimeoutFromEnv(t *testing.T) {
	t.Setenv("FISHFACTS_UPSTREAM_TIMEOUT_SECONDS", "0")

	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load() expected error for a zero timeout")
	}
}

func TestFromEnv_Empty(t *testing.T) {
	cfg, err := FromEnv(func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Port != 0 || cfg.UpstreamURL != "" {
		t.Errorf("expected zero overlay, got %+v", cfg)
	}
}

func TestMerge(t *testing.T) {
	base := &Config{
		UpstreamURL:   "https://a.example/species",
		Port:          8080,
		DisabledTools: []string{"species_search"},
	}
	overlay := &Config{
		Port:          9000,
		DisabledTools: []string{" species_sort_keys ", "species_search"},
	}

	got := Merge(base, overlay)

	if got.UpstreamURL != "https://a.example/species" {
		t.Errorf("UpstreamURL = %q, want base value", got.UpstreamURL)
	}
	if got.Port != 9000 {
		t.Errorf("Port = %d, want overlay value", got.Port)
	}
	if len(got.DisabledTools) != 2 || got.DisabledTools[0] != "species_search" || got.DisabledTools[1] != "species_sort_keys" {
		t.Errorf("DisabledTools = %v, want [species_search species_sort_keys]", got.DisabledTools)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"non-http upstream", func(c *Config) { c.UpstreamURL = "ftp://x" }, true},
		{"zero rps", func(c *Config) { c.UpstreamRPS = 0 }, true},
		{"zero timeout", func(c *Config) { c.UpstreamTimeoutSeconds = 0 }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"zero ttl", func(c *Config) { c.SessionTTLMinutes = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.UpstreamTimeout() != 15*time.Second {
		t.Errorf("UpstreamTimeout() = %v", cfg.UpstreamTimeout())
	}
	if cfg.SessionTTL() != 30*time.Minute {
		t.Errorf("SessionTTL() = %v", cfg.SessionTTL())
	}
}
