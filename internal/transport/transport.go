// Package transport delivers event batches to the collector over HTTP and
// proxies the read-side query endpoints.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/chainguard-dev/clog"
)

// DeliveryError is a batch send that exhausted retries or hit a
// non-retryable status. Status is zero for connection-level failures.
type DeliveryError struct {
	Status   int
	Body     string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("watchllm: delivery failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("watchllm: delivery failed after %d attempts: status %d: %s", e.Attempts, e.Status, e.Body)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// retryable statuses per the collector contract: transient server-side or
// throttling conditions. Everything else in 4xx is surfaced immediately.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config wires a Sender.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// RetryInterval seeds the exponential backoff between attempts.
	// Zero means one second.
	RetryInterval time.Duration
}

// Sender POSTs event batches with bounded retry and exposes the pass-through
// query endpoints. Safe for concurrent use.
type Sender struct {
	baseURL       string
	apiKey        string
	maxRetries    int
	retryInterval time.Duration
	httpc         *http.Client
	delivered     atomic.Uint64
	failed        atomic.Uint64
}

// New creates a Sender. The timeout bounds each individual attempt.
func New(cfg Config) *Sender {
	interval := cfg.RetryInterval
	if interval == 0 {
		interval = time.Second
	}
	return &Sender{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		maxRetries:    cfg.MaxRetries,
		retryInterval: interval,
		httpc:         &http.Client{Timeout: cfg.Timeout},
	}
}

// SendBatch POSTs events to /events/batch. Transient failures (connection
// errors, 408, 429, 5xx) are retried with exponential backoff up to
// MaxRetries additional attempts; other statuses fail immediately. On
// failure ownership of the batch stays with the caller.
func (s *Sender) SendBatch(ctx context.Context, events []map[string]any) error {
	if len(events) == 0 {
		return nil
	}
	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	attempts := 0
	op := func() (struct{}, error) {
		attempts++
		return struct{}{}, s.post(ctx, body)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.retryInterval

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(s.maxRetries)+1),
	)
	if err != nil {
		s.failed.Add(1)
		var derr *DeliveryError
		if errors.As(err, &derr) {
			derr.Attempts = attempts
			return derr
		}
		return &DeliveryError{Attempts: attempts, Err: err}
	}

	s.delivered.Add(uint64(len(events)))
	clog.FromContext(ctx).Debug("batch delivered", "events", len(events), "attempts", attempts)
	return nil
}

func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/events/batch", bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err // connection failure, retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	derr := &DeliveryError{Status: resp.StatusCode, Body: string(snippet)}
	if retryableStatus[resp.StatusCode] {
		return derr
	}
	return backoff.Permanent(derr)
}

// QueryEvents proxies POST /events/query. No retry or batching: the response
// is decoded and handed back as-is.
func (s *Sender) QueryEvents(ctx context.Context, query map[string]any) (map[string]any, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	return s.roundTrip(ctx, http.MethodPost, s.baseURL+"/events/query", body)
}

// ProjectMetrics proxies GET /projects/{id}/metrics with optional query
// parameters.
func (s *Sender) ProjectMetrics(ctx context.Context, projectID string, params url.Values) (map[string]any, error) {
	u := fmt.Sprintf("%s/projects/%s/metrics", s.baseURL, url.PathEscape(projectID))
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return s.roundTrip(ctx, http.MethodGet, u, nil)
}

func (s *Sender) roundTrip(ctx context.Context, method, u string, body []byte) (map[string]any, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &DeliveryError{Status: resp.StatusCode, Body: string(snippet), Attempts: 1}
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Delivered returns the total number of events acknowledged by the
// collector.
func (s *Sender) Delivered() uint64 { return s.delivered.Load() }

// FailedBatches returns the number of batch sends that ultimately failed.
func (s *Sender) FailedBatches() uint64 { return s.failed.Load() }
