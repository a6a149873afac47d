package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

var metricsWindow string

// metricsCmd fetches aggregate project metrics from the collector.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show aggregate metrics for the configured project",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		params := url.Values{}
		if metricsWindow != "" {
			params.Set("window", metricsWindow)
		}
		out, err := client.ProjectMetrics(ctx, params)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsWindow, "window", "", "aggregation window, e.g. 1h or 24h")
	rootCmd.AddCommand(metricsCmd)
}
