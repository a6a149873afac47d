package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/watchllm/watchllm-go"
)

var sendFlags struct {
	runID  string
	userID string
	tags   []string
}

// sendCmd reads NDJSON events from stdin and logs them through the
// pipeline, so shell scripts and CI jobs can emit telemetry without
// linking the SDK.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send events read from stdin (one JSON object per line)",
	Long: `Reads newline-delimited JSON from stdin. Each object needs an
"event_type" plus that kind's fields, e.g.:

  {"event_type":"prompt_call","model":"gpt-4o","prompt":"hi","tokens_input":3}
  {"event_type":"error","error":{"message":"timeout"}}

Events are queued, redacted, and flushed before the command exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close(ctx)

		if sendFlags.runID != "" || sendFlags.userID != "" || len(sendFlags.tags) > 0 {
			ctx = watchllm.WithRun(ctx, watchllm.Run{
				ID:     sendFlags.runID,
				UserID: sendFlags.userID,
				Tags:   sendFlags.tags,
			})
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		sent := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}
			ev, err := decodeEvent(raw)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			if _, err := client.Log(ctx, ev); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			sent++
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		if err := client.Flush(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d events\n", sent)
		return nil
	},
}

// decodeEvent maps one NDJSON object onto the typed event for its kind.
func decodeEvent(raw []byte) (watchllm.Event, error) {
	var probe struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var ev watchllm.Event
	switch watchllm.EventType(probe.EventType) {
	case watchllm.EventPromptCall:
		ev = &watchllm.PromptCall{}
	case watchllm.EventAgentStep:
		ev = &watchllm.AgentStep{}
	case watchllm.EventError:
		ev = &watchllm.ErrorEvent{}
	case watchllm.EventAssertionFailed:
		ev = &watchllm.AssertionFailed{}
	case watchllm.EventHallucination:
		ev = &watchllm.HallucinationDetected{}
	case watchllm.EventCostThresholdExceeded:
		ev = &watchllm.PerformanceAlert{}
	default:
		return nil, fmt.Errorf("unknown event_type %q", probe.EventType)
	}
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", probe.EventType, err)
	}
	return ev, nil
}

func init() {
	sendCmd.Flags().StringVar(&sendFlags.runID, "run-id", "", "run id applied to all events")
	sendCmd.Flags().StringVar(&sendFlags.userID, "user-id", "", "user id applied to all events")
	sendCmd.Flags().StringSliceVar(&sendFlags.tags, "tag", nil, "tag applied to all events (repeatable)")
	rootCmd.AddCommand(sendCmd)
}
