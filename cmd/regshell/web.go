package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/regshell/internal/config"
	"github.com/saltyorg/regshell/internal/health"
	"github.com/saltyorg/regshell/internal/logging"
	"github.com/saltyorg/regshell/internal/sqlplus"
	"github.com/saltyorg/regshell/internal/web"
)

// requestSlack is added on top of the procedure timeout for the per-request
// deadline, covering the wait for a free client slot.
const requestSlack = 30 * time.Second

func newWebCmd() *cobra.Command {
	var (
		port        int
		bind        string
		allowSubnet string
	)

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the registration pages over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Web.Port = port
			}
			if cmd.Flags().Changed("bind") {
				cfg.Web.Bind = bind
			}
			if cmd.Flags().Changed("allow-subnet") {
				cfg.Web.AllowSubnet = allowSubnet
			}
			return runWeb(cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "HTTP server port (or set PORT env var)")
	cmd.Flags().StringVarP(&bind, "bind", "b", "", "IP address to bind to (e.g., 127.0.0.1, 0.0.0.0)")
	cmd.Flags().StringVarP(&allowSubnet, "allow-subnet", "a", "", "CIDR subnet allowed to connect (e.g., 192.168.1.0/24)")

	return cmd
}

func runWeb(cfg *config.Config) error {
	logging.Apply(verbosity, logging.Options{Console: os.Stdout, File: cfg.Log})

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateWeb(); err != nil {
		return err
	}
	allowedNet, _ := cfg.AllowedNet()

	timeouts := config.DefaultTimeoutConfig()
	if proc := cfg.Database.ProcedureTimeout.Duration; proc > 0 && proc+requestSlack > timeouts.Request {
		timeouts.Request = proc + requestSlack
	}
	config.SetGlobalTimeouts(timeouts)

	if (cfg.Web.Bind == "" || cfg.Web.Bind == "0.0.0.0" || cfg.Web.Bind == "::") && cfg.Web.AllowSubnet == "" {
		log.Warn().Msg("Server is accessible from all interfaces without subnet restrictions. Consider using --bind or --allow-subnet for security.")
	}

	log.Info().
		Str("version", version).
		Int("port", cfg.Web.Port).
		Str("bind", cfg.Web.Bind).
		Str("allow_subnet", cfg.Web.AllowSubnet).
		Str("alias", cfg.Database.Alias).
		Str("audit_db", cfg.Audit.Path).
		Msg("Starting regshell web")

	svc, exec, cleanup, err := newService(cfg, "web")
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := web.NewServer(svc, cfg.Web.Port, cfg.Web.Bind, allowedNet)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var monitor *health.Monitor
	if cfg.Web.HealthSchedule != "" {
		monitor = health.NewMonitor(exec, cfg.Database.ProcedureTimeout.Duration)
		if err := monitor.Start(cfg.Web.HealthSchedule); err != nil {
			log.Warn().Err(err).Str("schedule", cfg.Web.HealthSchedule).Msg("Failed to start health monitor")
			monitor = nil
		} else {
			defer monitor.Stop()
			server.SetHealth(monitor)
			go monitor.Check(ctx)
		}
	}

	if path := cfg.Path(); path != "" {
		go func() {
			err := config.Watch(ctx, path, func(next *config.Config) {
				reloadWeb(exec, monitor, next)
			})
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Config hot reload disabled")
			}
		}()
	}

	if err := server.Start(ctx); err != nil {
		return err
	}

	log.Info().Msg("regshell stopped")
	return nil
}

// reloadWeb applies a reloaded config file. Listener settings need a restart;
// credentials and the health schedule take effect immediately.
func reloadWeb(exec *sqlplus.Executor, monitor *health.Monitor, next *config.Config) {
	exec.UpdateConfig(sqlplus.FromDatabaseConfig(next.Database))

	if monitor != nil && next.Web.HealthSchedule != "" {
		if err := monitor.SetSchedule(next.Web.HealthSchedule); err != nil {
			log.Warn().Err(err).Str("schedule", next.Web.HealthSchedule).Msg("Ignoring invalid health schedule")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), next.Database.ProcedureTimeout.Duration+requestSlack)
	defer cancel()
	if monitor != nil {
		monitor.Check(ctx)
	}
}
