package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ccproxy-hq/ccproxy/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file the way "ccproxy run" does and report every
validation error at once.

Examples:
  # Validate config.yaml in the working directory
  ccproxy validate

  # Validate a specific file
  ccproxy validate --config /etc/ccproxy/config.yaml`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", cfgFile)
	fmt.Fprintf(out, "  Listen address: %s\n", cfg.Server.Address())

	endpoints := 0
	for _, p := range cfg.Providers {
		if p.Name != config.NoteProviderName {
			endpoints++
		}
	}
	fmt.Fprintf(out, "  Providers: %d\n", endpoints)
	if len(cfg.HeaderOverrides) > 0 || len(cfg.RequestOverrides) > 0 {
		fmt.Fprintf(out, "  Override sets: %d header, %d request\n", len(cfg.HeaderOverrides), len(cfg.RequestOverrides))
	}
	if cfg.Discovery.Schedule != "" {
		fmt.Fprintf(out, "  Discovery schedule: %s\n", cfg.Discovery.Schedule)
	}
	return nil
}
