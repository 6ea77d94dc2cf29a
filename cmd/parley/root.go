package main

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"parley/internal/config"
	"parley/internal/db"
)

const defaultConfigPath = "parley.toml"

var version = "dev"

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "parley",
		Short: "Preference estimation for multi-issue negotiation",
		Long: `Parley estimates preference structures in multi-issue negotiation.

It reconstructs your own additive utility space from a ranking of bids by
linear programming, and models an opponent from the bids it proposes.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the TOML config (default $PARLEY_CONFIG_PATH or parley.toml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newEstimateCommand(opts))
	cmd.AddCommand(newReplayCommand(opts))
	cmd.AddCommand(newReportCommand(opts))

	return cmd
}

// load resolves the config path, reads the config and installs the logger on
// the command's stderr; stdout carries only command output. Only the implicit
// default path may be missing.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	path := o.configPath
	allowMissing := false
	if path == "" {
		path = os.Getenv("PARLEY_CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
		allowMissing = true
	}

	cfg, err := config.Load(path, allowMissing)
	if err != nil {
		return nil, err
	}

	level, err := config.ParseLevel(cfg.General.LogLevel)
	if err != nil {
		return nil, err
	}
	if o.debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	})))

	return cfg, nil
}

// openLedger opens and migrates the results database.
func openLedger(cfg *config.Config) (*sql.DB, error) {
	database, err := db.Open(cfg.General.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	version, err := db.Version(database)
	if err != nil {
		database.Close()
		return nil, err
	}
	slog.Info("database initialized", "path", cfg.General.DBPath, "schema_version", version)
	return database, nil
}
