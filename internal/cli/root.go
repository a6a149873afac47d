// Package cli implements the watchllm command-line tool: a thin shell
// around the SDK for sending events from scripts and querying the
// collector.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/watchllm/watchllm-go"
)

var rootCmd = &cobra.Command{
	Use:          "watchllm",
	Short:        "Telemetry tool for AI model invocations",
	Long:         "Sends telemetry events to a WatchLLM collector and queries recorded events and project metrics. Configuration comes from WATCHLLM_* environment variables.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient builds an SDK client from the environment.
func newClient(ctx context.Context) (*watchllm.Client, error) {
	return watchllm.FromEnv(ctx)
}
