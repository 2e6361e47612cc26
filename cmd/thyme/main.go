package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/yurifrl/thyme/pkg/config"
	"github.com/yurifrl/thyme/pkg/engine"
	"github.com/yurifrl/thyme/pkg/seed"
	"github.com/yurifrl/thyme/pkg/store"
	"github.com/yurifrl/thyme/pkg/store/memory"
	"github.com/yurifrl/thyme/pkg/store/postgres"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "thyme",
	Short:         "Import bank statements and review spending by category",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// app is what every subcommand needs, built from the resolved config.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	seed   *seed.Seed
	engine *engine.Engine
	close  func()
}

func setup(cmd *cobra.Command) (*app, error) {
	a, err := prepare(cmd)
	if err != nil {
		return nil, err
	}
	if err := a.open(cmd.Context()); err != nil {
		return nil, err
	}
	return a, nil
}

// prepare resolves config, logger and seed without touching the store.
func prepare(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "thyme",
		Level:           level,
	})

	sd, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, seed: sd, close: func() {}}, nil
}

func (a *app) open(ctx context.Context) error {
	var st store.Store
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		a.logger.Warn("using the in-memory store, nothing will be persisted")
		st = memory.New()
	default:
		pg, err := postgres.New(ctx, a.cfg.Store.DSN, a.logger)
		if err != nil {
			return err
		}
		st, a.close = pg, pg.Close
	}

	a.engine = engine.New(st, a.seed, a.logger)
	if err := a.engine.Bootstrap(ctx); err != nil {
		a.close()
		return fmt.Errorf("bootstrapping categories: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./thyme.yaml)")
	rootCmd.PersistentFlags().String("driver", "", "Record store: postgres or memory")
	rootCmd.PersistentFlags().String("dsn", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("seed", "", "Seed file with categories, rules and profiles (default is built in)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

func main() {
	// a missing .env is fine
	_ = gotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
