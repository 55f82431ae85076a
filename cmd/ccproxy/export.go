package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ccproxy-hq/ccproxy/pkg/cli"
	"ccproxy-hq/ccproxy/pkg/export"
)

var exportFlags struct {
	cliproxyOutput string
	ccswitchOutput string
	current        string
	prefix         bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Convert providers for other Claude tools",
	Long: `Convert the configured providers into the format of another tool.

The Note provider is skipped. Model lists come from the configuration file,
so run discovery first if they should be current.`,
}

var exportCLIProxyCmd = &cobra.Command{
	Use:   "cliproxy",
	Short: "Write a CLIProxyAPI openai-compatibility YAML file",
	Long: `Write the providers as a CLIProxyAPI "openai-compatibility" list.

Endpoint suffixes (/v1/messages, /v1/chat/completions, /anthropic/v1/messages
and a bare /v1) are stripped from base_url.

Examples:
  ccproxy export cliproxy -o cliproxy.yaml
  ccproxy export cliproxy -o -   # write to stdout`,
	Args: cobra.NoArgs,
	RunE: exportCLIProxy,
}

var exportCCSwitchCmd = &cobra.Command{
	Use:   "ccswitch",
	Short: "Write providers into a cc-switch SQLite database",
	Long: `Write the providers into the providers table of a cc-switch database.

The database is created if needed and existing claude providers are
replaced.

Examples:
  ccproxy export ccswitch -o cc-switch.db
  ccproxy export ccswitch -o cc-switch.db --current kimi --prefix`,
	Args: cobra.NoArgs,
	RunE: exportCCSwitch,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportCLIProxyCmd)
	exportCmd.AddCommand(exportCCSwitchCmd)

	exportCLIProxyCmd.Flags().StringVarP(&exportFlags.cliproxyOutput, "output", "o", "cliproxy.yaml", "output file, - for stdout")

	exportCCSwitchCmd.Flags().StringVarP(&exportFlags.ccswitchOutput, "output", "o", "cc-switch.db", "output database file")
	exportCCSwitchCmd.Flags().StringVar(&exportFlags.current, "current", "", "provider marked current (default: first provider)")
	exportCCSwitchCmd.Flags().BoolVar(&exportFlags.prefix, "prefix", false, "prefix names with their position (01-, 02-, ...)")
}

func exportCLIProxy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exportFlags.cliproxyOutput != "-" {
		f, err := os.Create(exportFlags.cliproxyOutput)
		if err != nil {
			return cli.NewCommandError("export cliproxy", err)
		}
		defer f.Close()
		out = f
	}

	n, err := export.WriteCLIProxy(out, cfg.Providers)
	if err != nil {
		return cli.NewCommandError("export cliproxy", err)
	}
	if exportFlags.cliproxyOutput != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d providers to %s\n", n, exportFlags.cliproxyOutput)
	}
	return nil
}

func exportCCSwitch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	n, err := export.WriteCCSwitch(context.Background(), exportFlags.ccswitchOutput, cfg.Providers, export.CCSwitchOptions{
		Current: exportFlags.current,
		Prefix:  exportFlags.prefix,
		Logger:  logger,
	})
	if err != nil {
		return cli.NewCommandError("export ccswitch", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d providers to %s\n", n, exportFlags.ccswitchOutput)
	return nil
}
