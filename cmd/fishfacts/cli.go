package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/fishfacts/internal/catalog"
	"github.com/hpungsan/fishfacts/internal/config"
	"github.com/hpungsan/fishfacts/internal/errors"
	"github.com/hpungsan/fishfacts/internal/logging"
	"github.com/hpungsan/fishfacts/internal/mcp"
	"github.com/hpungsan/fishfacts/internal/metrics"
	"github.com/hpungsan/fishfacts/internal/species"
	"github.com/hpungsan/fishfacts/internal/tui"
	"github.com/hpungsan/fishfacts/internal/upstream"
	"github.com/hpungsan/fishfacts/internal/web"
)

// appEnv holds the dependencies shared by every command. Fields left nil
// are built from the config on first use; tests preset them.
type appEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	fetcher catalog.Fetcher
}

// setup loads config and builds the logger, metrics and upstream client.
func (env *appEnv) setup(c *cli.Context) error {
	if env.cfg == nil {
		dir := c.String("config-dir")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return cli.Exit(fmt.Sprintf("could not determine home directory: %v", err), 1)
			}
			dir = filepath.Join(home, ".fishfacts")
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
		}
		env.cfg = cfg
	}
	if err := env.cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), 1)
	}

	if env.logger == nil {
		logger, err := logging.New(env.cfg.LogLevel, c.Bool("verbose"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		env.logger = logger
	}
	if env.metrics == nil {
		env.metrics = metrics.New()
	}
	if env.fetcher == nil {
		userAgent := env.cfg.UserAgent
		if userAgent == "" {
			userAgent = "fishfacts/" + Version
		}
		env.fetcher = upstream.NewClient(upstream.Options{
			URL:       env.cfg.UpstreamURL,
			UserAgent: userAgent,
			Timeout:   env.cfg.UpstreamTimeout(),
			RPS:       env.cfg.UpstreamRPS,
			Metrics:   env.metrics,
			Logger:    env.logger,
		})
	}
	return nil
}

// close flushes the logger.
func (env *appEnv) close() {
	if env.logger != nil {
		_ = env.logger.Sync()
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "fishfacts",
		Usage:   "Seafood nutrition search",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Usage: "Directory holding config.json and .env.local (default ~/.fishfacts)"},
			&cli.BoolFlag{Name: "verbose", Usage: "Debug logging"},
		},
		Commands: []*cli.Command{
			serveCmd(env),
			searchCmd(env),
			browseCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			if err := env.setup(c); err != nil {
				return err
			}

			cfg := *env.cfg
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			if err := cfg.Validate(); err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			store := catalog.NewStore(env.fetcher, cfg.SessionTTL(), env.metrics, env.logger)
			srv := web.NewServer(store, &cfg, env.metrics, env.logger, Version)
			if err := web.Run(c.Context, srv, store, env.logger); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search species by name (re-reads upstream on every call)",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Usage: "Sort key: Species|Calories|Fat|Serving Size"},
			&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
		},
		Action: func(c *cli.Context) error {
			var key species.SortKey
			if c.IsSet("sort") {
				var err error
				if key, err = species.ParseSortKey(c.String("sort")); err != nil {
					return outputError(err)
				}
			}

			if err := env.setup(c); err != nil {
				return err
			}

			state, err := catalog.Lookup(c.Context, env.fetcher, c.Args().First(), key)
			if err != nil {
				env.logger.Debug("search failed", zap.Error(err))
				return outputError(err)
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, searchOutputFor(state))
			}
			return outputTable(c.App.Writer, state)
		},
	}
}

// browseCmd creates the browse command.
func browseCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse the catalog in the terminal",
		Action: func(c *cli.Context) error {
			if err := env.setup(c); err != nil {
				return err
			}
			if err := tui.Run(c.Context, env.fetcher); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio",
		Action: func(c *cli.Context) error {
			if err := env.setup(c); err != nil {
				return err
			}
			if unknown := mcp.ValidateDisabledTools(env.cfg.DisabledTools); len(unknown) > 0 {
				env.logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
			}
			return mcp.Run(env.fetcher, env.cfg, env.logger, Version)
		},
	}
}

// searchRow is one species in search output.
type searchRow struct {
	Species     string `json:"species"`
	Calories    string `json:"calories"`
	Fat         string `json:"fat"`
	ServingSize string `json:"serving_size"`
}

// searchOutput is the JSON shape of the search command.
type searchOutput struct {
	Items  []searchRow     `json:"items"`
	Count  int             `json:"count"`
	Footer string          `json:"footer"`
	Sort   species.SortKey `json:"sort,omitempty"`
}

func searchOutputFor(state catalog.ViewState) searchOutput {
	items := make([]searchRow, len(state.Records))
	for i, rec := range state.Records {
		items[i] = searchRow{
			Species:     rec.Name(),
			Calories:    rec.Calories(),
			Fat:         rec.FatTotal(),
			ServingSize: rec.ServingWeight(),
		}
	}
	return searchOutput{Items: items, Count: len(items), Footer: state.Footer(), Sort: state.Sort}
}

// outputJSON prints data as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputTable prints the catalog as a bordered table followed by the footer.
func outputTable(w io.Writer, state catalog.ViewState) error {
	if msg := state.Message(); msg != "" {
		_, err := fmt.Fprintln(w, msg)
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Species", "Calories", "Fat", "Serving Size")
	for _, rec := range state.Records {
		t.Row(rec.Name(), rec.Calories(), rec.FatTotal(), rec.ServingWeight())
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", t.Render(), state.Footer())
	return err
}

// outputError formats error for CLI.
func outputError(err error) error {
	cErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
}
