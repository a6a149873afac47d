// Package watchllm provides client-side telemetry for applications that call
// AI models. It captures structured events (prompt calls, tool calls, agent
// steps, errors, assertion failures, hallucination detections, performance
// alerts), enriches them with run context and cost estimates, redacts PII,
// and delivers them in batches to a WatchLLM collector over HTTP.
//
// Usage:
//
//	client, err := watchllm.New(ctx,
//	    watchllm.WithAPIKey("wl_..."),
//	    watchllm.WithProjectID("proj_123"),
//	)
//	defer client.Close(ctx)
//
//	ctx = watchllm.WithRun(ctx, watchllm.Run{UserID: "u-42"})
//	client.LogPromptCall(ctx, watchllm.PromptCall{
//	    Prompt:       "Summarize the report",
//	    Model:        "gpt-4o",
//	    TokensInput:  812,
//	    TokensOutput: 108,
//	    Response:     "The report covers...",
//	})
//
// Event producers never block on the network: events are queued in memory and
// flushed by a background worker. When the queue is full the newest event is
// dropped and counted, never the caller stalled.
package watchllm
