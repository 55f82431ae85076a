package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"ccproxy-hq/ccproxy/pkg/cli"
	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/discovery"
	"ccproxy-hq/ccproxy/pkg/registry"
	"ccproxy-hq/ccproxy/pkg/server"
	"ccproxy-hq/ccproxy/pkg/telemetry/metrics"
	"ccproxy-hq/ccproxy/pkg/telemetry/tracing"
)

var runFlags struct {
	host     string
	port     int
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the ccproxy server",
	Long: `Start the ccproxy server with the specified configuration.

The server relays POST /v1/messages to the selected provider and serves the
web UI and /api control plane.

Examples:
  # Start with default config
  ccproxy run

  # Start with custom config
  ccproxy run --config /etc/ccproxy/config.yaml

  # Override the listener
  ccproxy run --host 0.0.0.0 --port 8080

  # Validate config without starting server
  ccproxy run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.host, "host", "", "override listen host")
	runCmd.Flags().IntVarP(&runFlags.port, "port", "p", 0, "override listen port")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.host != "" {
		cfg.Server.Host = runFlags.host
	}
	if runFlags.port != 0 {
		cfg.Server.Port = runFlags.port
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	tracer, err := tracing.New(cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	app := newComponents(cfg, registry.NewFileStore(cfg.Proxy.StateFile), logger, collector, tracer)

	srv := server.NewServer(cfg, server.Options{
		Registry:  app.registry,
		Forwarder: app.forwarder,
		Relay:     app.relay,
		Discovery: app.discovery,
		Metrics:   collector,
		Logger:    logger,
		Build:     server.BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate},
	})

	if cfg.Discovery.StartupRefresh() {
		app.discovery.RefreshInBackground(ctx)
	}

	scheduler := discovery.NewScheduler(app.discovery, cfg.Discovery.Schedule, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Warn("failed to start discovery scheduler", "error", err)
	} else if next := scheduler.NextRun(); next != nil {
		logger.Debug("discovery scheduler started", "next_run", next)
	}
	defer scheduler.Stop()

	if cfg.Watch.Enabled {
		watcher, err := config.NewWatcher(cfgFile, cfg.Watch.Debounce, logger)
		if err != nil {
			logger.Warn("config watcher disabled", "error", err)
		} else {
			defer watcher.Stop()
			go func() {
				if err := watcher.Watch(ctx, app.registry.Reload); err != nil {
					logger.Error("config watcher stopped", "error", err)
				}
			}()
		}
	}

	printBanner(cmd, cfg, app.registry)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	waitBackground(app.discovery, cfg.Server.ShutdownTimeout, logger)
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

// waitBackground gives detached discovery work up to timeout to finish
// writing results before the process exits.
func waitBackground(svc *discovery.Service, timeout time.Duration, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("background discovery still running at exit", "timeout", timeout.String())
	}
}

func printBanner(cmd *cobra.Command, cfg *config.Config, reg *registry.Registry) {
	out := cmd.OutOrStdout()
	base := "http://" + cfg.Server.Address()

	fmt.Fprintf(out, "ccproxy v%s\n", Version)
	fmt.Fprintf(out, "✓ Configuration loaded from %s (%d providers)\n", cfgFile, len(cfg.Providers))
	if p, ok := reg.Selected(); ok {
		fmt.Fprintf(out, "✓ Selected provider: %s\n", p.Name)
	} else {
		fmt.Fprintln(out, "! No provider selected")
	}
	fmt.Fprintf(out, "✓ Listening on %s\n", base)
	fmt.Fprintf(out, "✓ Web UI: %s/\n", base)
	fmt.Fprintf(out, "✓ Health endpoint: %s/health\n", base)
	if cfg.Telemetry.Metrics.IsEnabled() {
		fmt.Fprintf(out, "✓ Metrics endpoint: %s%s\n", base, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
