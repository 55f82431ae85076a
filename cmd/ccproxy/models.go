package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ccproxy-hq/ccproxy/pkg/cli"
	"ccproxy-hq/ccproxy/pkg/config"
	"ccproxy-hq/ccproxy/pkg/registry"
)

var modelsFlags struct {
	provider string
	format   string
	quiet    bool
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models each provider advertises",
	Long: `Query every provider's model listing once and print the result.

The listing uses the same credential placement and overrides as the relay,
including the shared override stored in the state file. Neither the
configuration nor the state file is modified.

Examples:
  # All providers as a table
  ccproxy models

  # One provider as JSON
  ccproxy models --provider kimi --format json`,
	Args: cobra.NoArgs,
	RunE: listModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().StringVar(&modelsFlags.provider, "provider", "", "only query this provider")
	modelsCmd.Flags().StringVarP(&modelsFlags.format, "format", "f", "text", "output format: text, json, csv")
	modelsCmd.Flags().BoolVarP(&modelsFlags.quiet, "quiet", "q", false, "suppress progress output")
}

// modelListing is one provider's line of output.
type modelListing struct {
	Provider string   `json:"provider"`
	OK       bool     `json:"ok"`
	Models   []string `json:"models"`
	Error    string   `json:"error,omitempty"`
}

type modelListings []modelListing

func (l modelListings) Header() []string {
	return []string{"PROVIDER", "STATUS", "COUNT", "MODELS"}
}

func (l modelListings) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, m := range l {
		status, detail := "ok", strings.Join(m.Models, ",")
		if !m.OK {
			status, detail = "error", m.Error
		}
		rows = append(rows, []string{m.Provider, status, strconv.Itoa(len(m.Models)), detail})
	}
	return rows
}

func listModels(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(modelsFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	// Start from the persisted state but never write it back.
	state, err := registry.NewFileStore(cfg.Proxy.StateFile).Load()
	if err != nil {
		logger.Warn("ignoring unreadable state file", "path", cfg.Proxy.StateFile, "error", err)
	}
	app := newComponents(cfg, registry.NewMemoryStore(state), logger, nil, nil)

	var targets []string
	for _, p := range app.registry.Providers() {
		if p.Name == config.NoteProviderName {
			continue
		}
		if modelsFlags.provider == "" || p.Name == modelsFlags.provider {
			targets = append(targets, p.Name)
		}
	}
	if modelsFlags.provider != "" && len(targets) == 0 {
		return cli.NewCommandError("models", fmt.Errorf("unknown provider %q", modelsFlags.provider))
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	progress := cli.NewProgressReporter(cmd.ErrOrStderr())
	if !modelsFlags.quiet {
		progress.Start(len(targets))
	}

	listings := make(modelListings, 0, len(targets))
	for _, name := range targets {
		for _, r := range app.discovery.RefreshAll(ctx, name) {
			listing := modelListing{Provider: r.Provider, OK: r.Updated, Models: []string{}, Error: r.Error}
			if p, ok := app.registry.Provider(r.Provider); ok && r.Updated {
				listing.Models = p.Models
			}
			listings = append(listings, listing)
		}
		if !modelsFlags.quiet {
			progress.Step(name)
		}
	}
	if !modelsFlags.quiet {
		progress.Finish()
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), listings)
}
