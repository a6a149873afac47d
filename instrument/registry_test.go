package instrument

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/watchllm/watchllm-go"
)

type collector struct {
	mu     sync.Mutex
	events []map[string]any
}

func (co *collector) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Events []map[string]any `json:"events"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		co.mu.Lock()
		co.events = append(co.events, payload.Events...)
		co.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
}

func (co *collector) received() []map[string]any {
	co.mu.Lock()
	defer co.mu.Unlock()
	out := make([]map[string]any, len(co.events))
	copy(out, co.events)
	return out
}

func newTestRegistry(t *testing.T) (*Registry, *watchllm.Client, *collector) {
	t.Helper()
	co := &collector{}
	srv := httptest.NewServer(co.handler())
	t.Cleanup(srv.Close)

	client, err := watchllm.New(context.Background(),
		watchllm.WithAPIKey("wl_test"),
		watchllm.WithProjectID("proj_test"),
		watchllm.WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close(context.Background()) })
	return NewRegistry(client), client, co
}

// fakeCall is an original provider callable counting its invocations.
type fakeCall struct {
	mu    sync.Mutex
	calls int
	resp  any
	err   error
}

func (f *fakeCall) fn(ctx context.Context, req any) (any, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.resp, f.err
}

func okResponse() map[string]any {
	return map[string]any{
		"choices": []any{map[string]any{
			"message": map[string]any{"content": "paris"},
		}},
		"usage": map[string]any{"prompt_tokens": float64(10), "completion_tokens": float64(2)},
	}
}

func request() map[string]any {
	return map[string]any{
		"model":    "gpt-4o",
		"messages": []any{map[string]any{"role": "user", "content": "capital of france?"}},
	}
}

func TestInstalledCallEmitsPromptCall(t *testing.T) {
	reg, client, co := newTestRegistry(t)
	orig := &fakeCall{resp: okResponse()}
	target := NewFuncTarget("fake.chat", "openai", orig.fn)
	reg.Install(target, MapExtractor{})

	ctx := watchllm.WithRun(context.Background(), watchllm.Run{ID: "run-7"})
	resp, err := target.Call(ctx, request())
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp == nil || orig.calls != 1 {
		t.Fatal("wrapper must delegate to the original exactly once")
	}
	if err := client.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := co.received()
	if len(got) != 1 {
		t.Fatalf("received %d events, want 1", len(got))
	}
	e := got[0]
	if e["event_type"] != "prompt_call" || e["run_id"] != "run-7" {
		t.Errorf("envelope = %v / %v", e["event_type"], e["run_id"])
	}
	if e["model"] != "gpt-4o" || e["response"] != "paris" {
		t.Errorf("extraction: model=%v response=%v", e["model"], e["response"])
	}
	if e["tokens_input"] != float64(10) || e["tokens_output"] != float64(2) {
		t.Errorf("usage: %v/%v", e["tokens_input"], e["tokens_output"])
	}
	tags := e["tags"].([]any)
	found := false
	for _, tag := range tags {
		if tag == "auto-instrumented" {
			found = true
		}
	}
	if !found {
		t.Errorf("tags = %v, want auto-instrumented marker", tags)
	}
}

func TestFailedCallEmitsErrorAndReraises(t *testing.T) {
	reg, client, co := newTestRegistry(t)
	boom := errors.New("rate limited")
	orig := &fakeCall{err: boom}
	target := NewFuncTarget("fake.chat", "openai", orig.fn)
	reg.Install(target, MapExtractor{})

	_, err := target.Call(context.Background(), request())
	if !errors.Is(err, boom) {
		t.Fatalf("wrapper must re-raise the original error, got %v", err)
	}
	client.Flush(context.Background())

	got := co.received()
	if len(got) != 1 {
		t.Fatalf("received %d events, want exactly 1", len(got))
	}
	e := got[0]
	if e["status"] != "error" {
		t.Errorf("status = %v", e["status"])
	}
	desc := e["error"].(map[string]any)
	if desc["message"] != "rate limited" {
		t.Errorf("error descriptor = %v", desc)
	}
}

func TestInstallIdempotentRemoveRestores(t *testing.T) {
	reg, _, co := newTestRegistry(t)
	orig := &fakeCall{resp: okResponse()}
	target := NewFuncTarget("fake.chat", "openai", orig.fn)

	reg.Install(target, MapExtractor{})
	reg.Install(target, MapExtractor{})
	if !reg.Installed("fake.chat") {
		t.Fatal("target must stay patched")
	}

	// Double-install must not wrap the wrapper: one call, one delegation.
	target.Call(context.Background(), request())
	if orig.calls != 1 {
		t.Fatalf("original called %d times, want 1", orig.calls)
	}

	reg.Remove(target)
	if reg.Installed("fake.chat") {
		t.Fatal("target must be unpatched after Remove")
	}
	target.Call(context.Background(), request())
	if orig.calls != 2 {
		t.Fatal("restored callable must be the original")
	}
	// Removed target emits nothing new beyond the single wrapped call.
	reg.Remove(target) // no-op
	if len(co.received()) > 1 {
		t.Fatalf("unexpected events after remove: %d", len(co.received()))
	}
}

func TestDisableDelegatesWithoutObserving(t *testing.T) {
	reg, client, co := newTestRegistry(t)
	orig := &fakeCall{resp: okResponse()}
	target := NewFuncTarget("fake.chat", "openai", orig.fn)
	reg.Install(target, MapExtractor{})

	reg.Disable()
	if _, err := target.Call(context.Background(), request()); err != nil {
		t.Fatal(err)
	}
	client.Flush(context.Background())
	if len(co.received()) != 0 {
		t.Fatal("disabled registry must not emit events")
	}
	if orig.calls != 1 {
		t.Fatal("disabled registry must still delegate")
	}

	reg.Enable()
	target.Call(context.Background(), request())
	client.Flush(context.Background())
	if len(co.received()) != 1 {
		t.Fatal("re-enabled registry must observe again")
	}
}

// panicExtractor fails on every accessor; observation must still not alter
// the call outcome.
type panicExtractor struct{}

func (panicExtractor) Prompt(any) string { panic("prompt") }

func (panicExtractor) Model(any) string { panic("model") }

func (panicExtractor) ResponseText(any) string { panic("text") }

func (panicExtractor) Usage(any) (int, int) { panic("usage") }

func (panicExtractor) ResponseMetadata(any) map[string]any { panic("meta") }

func TestExtractorPanicAbsorbed(t *testing.T) {
	reg, client, co := newTestRegistry(t)
	orig := &fakeCall{resp: okResponse()}
	target := NewFuncTarget("fake.chat", "openai", orig.fn)
	reg.Install(target, panicExtractor{})

	resp, err := target.Call(context.Background(), request())
	if err != nil || resp == nil {
		t.Fatalf("extractor failure changed the call outcome: %v %v", resp, err)
	}
	client.Flush(context.Background())
	got := co.received()
	if len(got) != 1 {
		t.Fatalf("received %d events, want 1", len(got))
	}
	if got[0]["prompt"] != "" || got[0]["response"] != "" {
		t.Errorf("panicking accessors must degrade to empty: %v", got[0])
	}
	if got[0]["model"] != "openai" {
		t.Errorf("model must fall back to the provider name, got %v", got[0]["model"])
	}
}
