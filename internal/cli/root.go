// Package cli provides the command-line interface for the trade journal.
package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/cache"
	"trade-journal/internal/config"
	"trade-journal/internal/importer"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/scheduler"
	"trade-journal/internal/service"
	"trade-journal/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies. It is populated by the root
// command before any subcommand runs.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Location  *time.Location
	Store     *store.TradeStore
	Mirror    *store.SQLiteMirror
	Cache     *cache.Cache[models.MetricSeries]
	Service   *service.Service
	Importer  *importer.Importer
	Scheduler *scheduler.Scheduler

	detach func()
}

// Execute runs the CLI with os.Args and releases every resource afterwards.
// logger is used until the configuration has been loaded.
func Execute(ctx context.Context, logger zerolog.Logger) error {
	app := &App{Logger: logger}
	defer app.Close()
	return NewRootCmd(app).ExecuteContext(ctx)
}

// NewRootCmd creates the root command for the CLI. The caller owns app and
// must Close it once the command has run.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tj",
		Short: "Trade journal - import broker exports and analyze performance",
		Long: `tj is a trading journal for the command line.

Import CSV exports from your broker, then review equity curves, R-multiples,
day and time breakdowns and summary statistics. Trades are kept per account
and mirrored to a local SQLite database between runs.

Use 'tj metrics' to list the available metrics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.bootstrap(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().String("account", "", "account to operate on (overrides journal.account)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addTradeCommands(rootCmd, app)
	addAnalyticsCommands(rootCmd, app)
	addCacheCommands(rootCmd, app)
	addNoteCommands(rootCmd, app)

	return rootCmd
}

// bootstrap loads configuration and wires the store, mirror, cache and
// analytics service for the selected account.
func (a *App) bootstrap(cmd *cobra.Command) error {
	if a.Config != nil {
		return nil
	}

	configDir, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if account, _ := cmd.Flags().GetString("account"); account != "" {
		cfg.Journal.Account = account
	}
	a.Config = cfg

	level := cfg.Logging.Level
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = "debug"
	}
	a.Logger = logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      level,
		Console:    true,
		File:       cfg.Logging.File,
		FilePath:   filepath.Join(cfg.Dir, "logs", "journal.log"),
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})

	a.Location, err = cfg.Location()
	if err != nil {
		return err
	}

	a.Store = store.NewTradeStore(cfg.Journal.Account)
	a.Importer = importer.New(a.Logger)
	a.Cache = cache.New[models.MetricSeries](cache.WithTTL(cfg.Analytics.CacheTTL))

	var opts []service.Option
	if cfg.Storage.Mirror {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0755); err != nil {
			return err
		}
		a.Mirror, err = store.NewSQLiteMirror(cfg.Storage.DBPath, a.Location, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("SQLite mirror unavailable, trades will not persist")
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.Mirror.Hydrate(ctx, a.Store); err != nil {
				return err
			}
			a.detach = a.Mirror.Attach(a.Store)
			mirror, ts := a.Mirror, a.Store
			opts = append(opts, service.WithLoader(func(ctx context.Context) error {
				return mirror.Hydrate(ctx, ts)
			}))
		}
	}

	a.Service = service.New(a.Store, a.Cache, nil, a.Logger, opts...)
	if err := a.Service.Init(); err != nil {
		return err
	}

	a.Scheduler = scheduler.New(a.Logger)
	schedule := cfg.Analytics.CleanupSchedule
	if schedule == "" {
		schedule = scheduler.DefaultCleanupSchedule
	}
	if err := a.Scheduler.AddJob(schedule, scheduler.NewCacheCleanupJob(a.Service, a.Logger)); err != nil {
		a.Logger.Warn().Err(err).Str("schedule", schedule).Msg("Invalid cleanup schedule")
	}
	a.Scheduler.Start()

	a.Logger.Debug().
		Str("account", cfg.Journal.Account).
		Int("trades", a.Store.Len()).
		Msg("Journal loaded")
	return nil
}

// Close tears down everything bootstrap created.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Service != nil {
		a.Service.Dispose()
	}
	if a.detach != nil {
		a.detach()
		a.detach = nil
	}
	if a.Mirror != nil {
		if err := a.Mirror.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
		}
		a.Mirror = nil
	}
}

// output returns an Output honoring the UI settings.
func (a *App) output(cmd *cobra.Command) *Output {
	o := NewOutput(cmd)
	if a.Config != nil {
		if !a.Config.UI.ColorEnabled {
			o.colorEnabled = false
		}
		if a.Config.UI.Currency != "" {
			o.currency = a.Config.UI.Currency
		}
	}
	return o
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// version needs no journal
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("tj v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the journal configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.Config.Dir})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Journal")
	output.Printf("  Account:          %s\n", cfg.Journal.Account)
	output.Printf("  Timezone:         %s\n", cfg.Journal.Timezone)
	output.Printf("  Starting Balance: %s\n", output.Money(cfg.Journal.StartingBalance))
	output.Printf("  Default Format:   %s\n", cfg.Journal.DefaultFormat)
	output.Println()

	output.Bold("Analytics")
	output.Printf("  Cache TTL:        %s\n", cfg.Analytics.CacheTTL)
	output.Printf("  Cleanup:          %s\n", cfg.Analytics.CleanupSchedule)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Mirror:           %v\n", cfg.Storage.Mirror)
	output.Printf("  Database:         %s\n", cfg.Storage.DBPath)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
	output.Printf("  File:             %v\n", cfg.Logging.File)
}
