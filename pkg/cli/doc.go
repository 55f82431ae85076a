/*
Package cli provides command-line helpers shared by the ccproxy commands.

Output Formatting:

Results implementing Tabular render as aligned text or CSV; every result
renders as JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, results); err != nil {
		return err
	}

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(len(providers))
	for _, p := range providers {
		refresh(p)
		progress.Step(p.Name)
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Errors:

ConfigError and CommandError wrap failures for the command layer, and
ExitCode maps them to the process exit status.
*/
package cli
