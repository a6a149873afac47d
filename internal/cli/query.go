package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var queryFlags struct {
	eventType string
	runID     string
	limit     int
	raw       string
}

// queryCmd runs a collector-side event query and prints the JSON response.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query recorded events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		query := map[string]any{}
		switch {
		case queryFlags.raw == "-":
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(raw, &query); err != nil {
				return fmt.Errorf("invalid query JSON: %w", err)
			}
		case queryFlags.raw != "":
			if err := json.Unmarshal([]byte(queryFlags.raw), &query); err != nil {
				return fmt.Errorf("invalid query JSON: %w", err)
			}
		default:
			if queryFlags.eventType != "" {
				query["event_type"] = queryFlags.eventType
			}
			if queryFlags.runID != "" {
				query["run_id"] = queryFlags.runID
			}
			if queryFlags.limit > 0 {
				query["limit"] = queryFlags.limit
			}
		}

		out, err := client.QueryEvents(ctx, query)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	queryCmd.Flags().StringVar(&queryFlags.eventType, "event-type", "", "filter by event type (prompt_call, agent_step, error, ...)")
	queryCmd.Flags().StringVar(&queryFlags.runID, "run-id", "", "filter by run id")
	queryCmd.Flags().IntVar(&queryFlags.limit, "limit", 0, "maximum events to return")
	queryCmd.Flags().StringVar(&queryFlags.raw, "json", "", "raw query JSON ('-' reads stdin, overrides other filters)")
	rootCmd.AddCommand(queryCmd)
}
