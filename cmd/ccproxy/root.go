package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"ccproxy-hq/ccproxy/pkg/cli"
	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile  string
	envFiles []string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "ccproxy",
	Short: "ccproxy - switchable upstream proxy for Claude clients",
	Long: `ccproxy is a local reverse proxy for Claude-compatible clients.

Clients point ANTHROPIC_BASE_URL at ccproxy, which relays every
POST /v1/messages to the currently selected upstream provider:
  - Per-provider credential placement (header, query, or both)
  - Header and request body overrides
  - Streaming relay with a consecutive-error drop threshold
  - Model discovery and provider testing
  - A web UI and /api control plane to switch providers at runtime`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "env files loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads env files and the configuration file. Failures are
// returned as *cli.ConfigError.
func loadConfig() (*config.Config, error) {
	config.LoadEnvFiles(envFiles...)

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return logger, nil
}
