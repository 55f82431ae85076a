// ccproxy is a local reverse proxy for Claude-compatible clients. It
// relays POST /v1/messages to one of several interchangeable upstream
// providers, switchable at runtime from a small web UI.
//
// Usage:
//
//	# Start the proxy with config.yaml from the working directory
//	ccproxy run
//
//	# Start with a specific configuration file
//	ccproxy run --config /etc/ccproxy/config.yaml
//
//	# Check a configuration file
//	ccproxy validate --config config.yaml
//
//	# List the models every provider advertises
//	ccproxy models --format json
//
//	# Convert providers for CLIProxyAPI or cc-switch
//	ccproxy export cliproxy -o cliproxy.yaml
//	ccproxy export ccswitch -o cc-switch.db
package main

import (
	"fmt"
	"os"

	"ccproxy-hq/ccproxy/pkg/cli"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
