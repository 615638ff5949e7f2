// Package cli provides the storefront command: serve, migrate and seed.
package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"storefront/internal/config"
)

type app struct {
	v   *viper.Viper
	cfg config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront backend: catalog, basket, orders and payments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.v.GetString("config"))
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = newLogger(cfg)
			slog.SetDefault(a.log)
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")
	root.PersistentFlags().String("store", "", "store backend: memory|postgres|mongo (overrides store.kind)")
	_ = a.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("store.kind", root.PersistentFlags().Lookup("store"))

	root.AddCommand(a.serveCmd(), a.migrateCmd(), a.seedCmd())
	return root
}

// Execute runs the root command with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newLogger(cfg config.Config) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Development() {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
