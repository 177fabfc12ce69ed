package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/regshell/internal/config"
	"github.com/saltyorg/regshell/internal/database"
	"github.com/saltyorg/regshell/internal/logging"
	"github.com/saltyorg/regshell/internal/menu"
	"github.com/saltyorg/regshell/internal/registrar"
	"github.com/saltyorg/regshell/internal/sqlplus"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	configPath  string
	auditDBPath string
	verbosity   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "regshell",
		Short: "regshell - student registration front-end",
		Long: `regshell runs the reg_pkg stored procedures through SQL*Plus.

Without a subcommand it shows an interactive menu. Use "regshell web" to
serve the same operations over HTTP.`,
		SilenceUsage: true,
		RunE:         runMenu,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file (or set "+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&auditDBPath, "audit-db", "", "SQLite audit log path, empty disables (or set "+config.EnvAuditDB+")")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	rootCmd.AddCommand(
		newWebCmd(),
		newHistoryCmd(),
		newExportCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("regshell %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies the
// persistent flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("audit-db") {
		cfg.Audit.Path = auditDBPath
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openAudit opens and migrates the audit database. It returns nil when the
// audit log is disabled.
func openAudit(cfg *config.Config) (*database.DB, error) {
	if cfg.Audit.Path == "" {
		return nil, nil
	}
	db, err := database.New(cfg.Audit.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}
	return db, nil
}

// newService wires an executor and, when configured, the audit log.
func newService(cfg *config.Config, source string) (*registrar.Service, *sqlplus.Executor, func(), error) {
	exec := sqlplus.New(sqlplus.FromDatabaseConfig(cfg.Database))
	svc := registrar.New(exec, source)

	db, err := openAudit(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() {}
	if db != nil {
		svc.SetRecorder(registrar.NewAuditRecorder(db))
		cleanup = func() {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close audit database")
			}
		}
		log.Debug().Str("path", db.Path()).Msg("Audit log enabled")
	}
	return svc, exec, cleanup, nil
}

func runMenu(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logging.Apply(verbosity, logging.Options{Console: os.Stderr, Quiet: true, File: cfg.Log})

	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, _, cleanup, err := newService(cfg, "cli")
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	return menu.New(svc, os.Stdin, os.Stdout).Run(ctx)
}
