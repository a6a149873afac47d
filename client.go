package watchllm

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"github.com/watchllm/watchllm-go/internal/flush"
	"github.com/watchllm/watchllm-go/internal/queue"
	"github.com/watchllm/watchllm-go/internal/redact"
	"github.com/watchllm/watchllm-go/internal/sample"
	"github.com/watchllm/watchllm-go/internal/transport"
)

// Client is the telemetry pipeline: it enriches, samples, redacts, and
// queues events, while a background scheduler ships batches to the
// collector. Safe for concurrent use; logging methods never block on the
// network.
type Client struct {
	cfg      clientConfig
	q        *queue.Queue
	redactor *redact.Redactor
	sender   *transport.Sender
	sched    *flush.Scheduler

	enqueued atomic.Uint64
	sampled  atomic.Uint64

	cancel context.CancelFunc
	closed atomic.Bool
}

// New creates a Client and starts its background flush worker. ctx scopes
// the worker's logging; cancelling it does not stop the client — use Close.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.apiKey == "" {
		return nil, fmt.Errorf("watchllm: api key is required")
	}
	if cfg.projectID == "" {
		return nil, fmt.Errorf("watchllm: project id is required")
	}
	if cfg.sampleRate < 0 || cfg.sampleRate > 1 {
		return nil, fmt.Errorf("watchllm: sample rate %v outside [0, 1]", cfg.sampleRate)
	}
	if cfg.batchSize < 1 {
		return nil, fmt.Errorf("watchllm: batch size must be at least 1")
	}
	if cfg.queueCapacity < 1 {
		return nil, fmt.Errorf("watchllm: queue capacity must be at least 1")
	}

	c := &Client{
		cfg:      cfg,
		q:        queue.New(cfg.queueCapacity),
		redactor: redact.New(cfg.redactPII),
		sender: transport.New(transport.Config{
			BaseURL:       cfg.baseURL,
			APIKey:        cfg.apiKey,
			Timeout:       cfg.requestTimeout,
			MaxRetries:    cfg.maxRetries,
			RetryInterval: cfg.retryInterval,
		}),
	}
	c.sched = flush.New(c.q, c.sender, cfg.batchSize, cfg.flushInterval, cfg.tick)

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	go c.sched.Run(workerCtx)

	if cfg.redactConfigPath != "" {
		if err := c.loadRedactConfig(workerCtx); err != nil {
			cancel()
			return nil, err
		}
	}

	return c, nil
}

// Init is shorthand for New with the two required settings up front.
func Init(ctx context.Context, apiKey, projectID string, opts ...Option) (*Client, error) {
	return New(ctx, append([]Option{WithAPIKey(apiKey), WithProjectID(projectID)}, opts...)...)
}

func (c *Client) loadRedactConfig(ctx context.Context) error {
	rcfg, err := redact.LoadConfig(c.cfg.redactConfigPath)
	if err != nil {
		return fmt.Errorf("watchllm: %w", err)
	}
	rules, err := redact.Compile(rcfg)
	if err != nil {
		return fmt.Errorf("watchllm: %w", err)
	}
	c.redactor.SetRules(rules)

	reloader, err := redact.NewReloader(c.redactor, c.cfg.redactConfigPath)
	if err != nil {
		// Watching is best-effort: the rules above still apply.
		clog.FromContext(ctx).Warn("redact config watch disabled", "error", err)
		return nil
	}
	go reloader.Run(ctx)
	return nil
}

// Log enriches, samples, redacts, and queues one event. It returns the
// assigned event id without waiting for delivery. A sampled-out or dropped
// event still returns its id: the producer is never failed for pipeline
// reasons, only for malformed input.
func (c *Client) Log(ctx context.Context, ev Event) (string, error) {
	if ev == nil {
		return "", &ProducerError{Op: "Log", Reason: "event is nil"}
	}
	if err := ev.validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	serialized := c.envelope(ctx, id, ev)

	if !sample.Admit(c.cfg.sampleRate) {
		c.sampled.Add(1)
		return id, nil
	}

	serialized = c.redactor.Apply(ctx, serialized)

	if !c.q.Enqueue(serialized) {
		clog.FromContext(ctx).Warn("event queue full, dropping event",
			"event_type", string(ev.Kind()), "dropped_total", c.q.Dropped())
		return id, nil
	}
	c.enqueued.Add(1)
	return id, nil
}

// envelope merges the base fields, ambient run context, and kind-specific
// payload into the wire map.
func (c *Client) envelope(ctx context.Context, id string, ev Event) map[string]any {
	b := ev.base()
	run, _ := RunFromContext(ctx)

	runID := b.RunID
	if runID == "" {
		runID = CurrentRunID(ctx)
	}
	userID := b.UserID
	if userID == "" {
		userID = run.UserID
	}
	tags := b.Tags
	if tags == nil {
		tags = run.Tags
	}
	release := b.Release
	if release == "" {
		release = c.cfg.release
	}

	m := map[string]any{
		"event_id":   id,
		"event_type": string(ev.Kind()),
		"project_id": c.cfg.projectID,
		"run_id":     runID,
		"timestamp":  time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		"user_id":    userID,
		"tags":       orSlice(tags),
		"release":    release,
		"env":        c.cfg.environment,
		"client": map[string]any{
			"sdk":         clientName,
			"sdk_version": Version,
			"platform":    "go/" + runtime.GOOS + "-" + runtime.GOARCH,
		},
	}
	for k, v := range ev.fields() {
		m[k] = v
	}
	return m
}

// LogPromptCall records one model invocation.
func (c *Client) LogPromptCall(ctx context.Context, ev PromptCall) (string, error) {
	return c.Log(ctx, &ev)
}

// LogAgentStep records one step of an agent loop.
func (c *Client) LogAgentStep(ctx context.Context, ev AgentStep) (string, error) {
	return c.Log(ctx, &ev)
}

// LogError records an application error. The Go error populates the
// descriptor fields left unset.
func (c *Client) LogError(ctx context.Context, err error, ev ErrorEvent) (string, error) {
	if err != nil && len(ev.Error) == 0 {
		ev.Error = map[string]string{
			"message": err.Error(),
			"type":    fmt.Sprintf("%T", err),
		}
	}
	return c.Log(ctx, &ev)
}

// LogAssertionFailed records a failed output assertion.
func (c *Client) LogAssertionFailed(ctx context.Context, ev AssertionFailed) (string, error) {
	return c.Log(ctx, &ev)
}

// LogHallucination records a flagged model output.
func (c *Client) LogHallucination(ctx context.Context, ev HallucinationDetected) (string, error) {
	return c.Log(ctx, &ev)
}

// LogPerformanceAlert records a threshold breach.
func (c *Client) LogPerformanceAlert(ctx context.Context, ev PerformanceAlert) (string, error) {
	return c.Log(ctx, &ev)
}

// Flush synchronously drains and delivers everything queued. Unlike the
// background scheduler, a failed manual flush requeues the batch and
// surfaces the DeliveryError to the caller.
func (c *Client) Flush(ctx context.Context) error {
	for {
		batch := c.q.DrainUpTo(100)
		if len(batch) == 0 {
			return nil
		}
		if err := c.sender.SendBatch(ctx, batch); err != nil {
			c.q.Requeue(batch)
			return err
		}
	}
}

// Close stops the background worker after one final best-effort flush.
// Idempotent. A bounded wait keeps shutdown from hanging on a dead
// collector; exceeding it proceeds anyway.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	select {
	case <-c.sched.Done():
		return nil
	case <-time.After(5 * time.Second):
		clog.FromContext(ctx).Warn("flush worker did not stop in time, proceeding with shutdown")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a point-in-time snapshot of pipeline counters.
type Stats struct {
	Queued        int    // events currently buffered
	Enqueued      uint64 // events admitted to the queue since start
	SampledOut    uint64 // events rejected by the sampler
	Dropped       uint64 // events dropped due to a full queue
	Delivered     uint64 // events acknowledged by the collector
	FailedBatches uint64 // batch sends that exhausted retries
}

// Stats returns pipeline counters for diagnostics.
func (c *Client) Stats() Stats {
	return Stats{
		Queued:        c.q.Len(),
		Enqueued:      c.enqueued.Load(),
		SampledOut:    c.sampled.Load(),
		Dropped:       c.q.Dropped(),
		Delivered:     c.sender.Delivered(),
		FailedBatches: c.sender.FailedBatches(),
	}
}
