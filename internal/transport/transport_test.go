package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) (*Sender, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := New(Config{
		BaseURL:       srv.URL,
		APIKey:        "wl_test",
		Timeout:       5 * time.Second,
		MaxRetries:    3,
		RetryInterval: time.Millisecond,
	})
	return s, srv
}

func batch(n int) []map[string]any {
	events := make([]map[string]any, n)
	for i := range events {
		events[i] = map[string]any{"event_type": "prompt_call"}
	}
	return events
}

func TestSendBatchSuccess(t *testing.T) {
	var gotAuth, gotType string
	var gotBody []byte
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	})

	if err := s.SendBatch(context.Background(), batch(3)); err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if gotAuth != "Bearer wl_test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	var payload struct {
		Events []map[string]any `json:"events"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil || len(payload.Events) != 3 {
		t.Errorf("body = %s", gotBody)
	}
	if s.Delivered() != 3 {
		t.Errorf("Delivered = %d, want 3", s.Delivered())
	}
}

func TestSendBatchRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := s.SendBatch(context.Background(), batch(1)); err != nil {
		t.Fatalf("SendBatch after three 503s: %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("calls = %d, want 4 (initial + 3 retries)", calls.Load())
	}
}

func TestSendBatchNonRetryableFailsFast(t *testing.T) {
	var calls atomic.Int32
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	err := s.SendBatch(context.Background(), batch(1))
	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want DeliveryError", err)
	}
	if derr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", derr.Status)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, a 401 must not be retried", calls.Load())
	}
	if s.FailedBatches() != 1 {
		t.Errorf("FailedBatches = %d, want 1", s.FailedBatches())
	}
}

func TestSendBatchExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	err := s.SendBatch(context.Background(), batch(1))
	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want DeliveryError", err)
	}
	if derr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", derr.Status)
	}
	if derr.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", derr.Attempts)
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4", calls.Load())
	}
}

func TestSendBatchConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := New(Config{BaseURL: url, APIKey: "k", Timeout: time.Second, MaxRetries: 1, RetryInterval: time.Millisecond})
	err := s.SendBatch(context.Background(), batch(1))
	var derr *DeliveryError
	if !errors.As(err, &derr) {
		t.Fatalf("error = %v, want DeliveryError", err)
	}
	if derr.Status != 0 {
		t.Errorf("Status = %d, want 0 for connection failure", derr.Status)
	}
	if derr.Err == nil {
		t.Error("connection failure must carry the underlying error")
	}
}

func TestSendBatchEmptyIsNoop(t *testing.T) {
	called := false
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	if err := s.SendBatch(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("empty batch must not hit the network")
	}
}

func TestQueryEvents(t *testing.T) {
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/query" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"events": []any{}, "total": 0})
	})

	out, err := s.QueryEvents(context.Background(), map[string]any{"project_id": "p1"})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if _, ok := out["events"]; !ok {
		t.Errorf("response not passed through: %v", out)
	}
}

func TestProjectMetrics(t *testing.T) {
	s, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/p1/metrics" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("window") != "1h" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{"total_cost_usd": 1.25})
	})

	out, err := s.ProjectMetrics(context.Background(), "p1", map[string][]string{"window": {"1h"}})
	if err != nil {
		t.Fatalf("ProjectMetrics: %v", err)
	}
	if out["total_cost_usd"] != 1.25 {
		t.Errorf("response = %v", out)
	}
}
