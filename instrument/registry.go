package instrument

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/watchllm/watchllm-go"
)

// Registry owns the installed/enabled state of all instrumented targets.
// Each target moves Unpatched -> Patched on Install and back on Remove;
// the registry keeps the original callable for byte-for-byte restoration.
// The enable flag gates observation without touching patched targets, so
// Disable is instantaneous.
type Registry struct {
	client  *watchllm.Client
	enabled atomic.Bool

	mu        sync.Mutex
	originals map[string]CallFunc
}

// NewRegistry creates an enabled registry emitting through client.
func NewRegistry(client *watchllm.Client) *Registry {
	r := &Registry{
		client:    client,
		originals: make(map[string]CallFunc),
	}
	r.enabled.Store(true)
	return r
}

// Install substitutes an observing wrapper for the target's callable.
// Idempotent: installing an already-patched target is a no-op, keeping the
// first recorded original.
func (r *Registry) Install(target Target, ex Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, patched := r.originals[target.Name()]; patched {
		return
	}
	orig := target.Callable()
	r.originals[target.Name()] = orig
	target.SetCallable(r.wrap(target, ex, orig))
}

// Remove restores the original callable. No-op when unpatched.
func (r *Registry) Remove(target Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	orig, patched := r.originals[target.Name()]
	if !patched {
		return
	}
	target.SetCallable(orig)
	delete(r.originals, target.Name())
}

// Installed reports whether the named target is patched.
func (r *Registry) Installed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.originals[name]
	return ok
}

// Enable turns observation on for all patched targets.
func (r *Registry) Enable() { r.enabled.Store(true) }

// Disable turns observation off; patched targets delegate straight through.
func (r *Registry) Disable() { r.enabled.Store(false) }

// Enabled reports the observation flag.
func (r *Registry) Enabled() bool { return r.enabled.Load() }

// wrap builds the observing callable. The wrapper never alters the observed
// call's result or error: extraction failures degrade to zero values and
// emission failures are logged, not raised.
func (r *Registry) wrap(target Target, ex Extractor, orig CallFunc) CallFunc {
	return func(ctx context.Context, req any) (any, error) {
		if !r.enabled.Load() {
			return orig(ctx, req)
		}

		prompt := safeString(func() string { return ex.Prompt(req) })
		model := safeString(func() string { return ex.Model(req) })
		if model == "" {
			model = target.Provider()
		}

		start := time.Now()
		resp, err := orig(ctx, req)
		latency := time.Since(start).Milliseconds()

		ev := watchllm.PromptCall{
			EventBase: watchllm.EventBase{
				RunID: watchllm.CurrentRunID(ctx),
				Tags:  []string{"auto-instrumented", "provider:" + target.Provider()},
			},
			Prompt:    prompt,
			Model:     model,
			LatencyMS: latency,
		}
		if err != nil {
			ev.Status = watchllm.StatusError
			ev.Error = map[string]string{
				"message": err.Error(),
				"type":    fmt.Sprintf("%T", err),
			}
		} else {
			ev.Status = watchllm.StatusSuccess
			ev.Response = safeString(func() string { return ex.ResponseText(resp) })
			ev.TokensInput, ev.TokensOutput = safeUsage(func() (int, int) { return ex.Usage(resp) })
			ev.ResponseMetadata = safeMetadata(func() map[string]any { return ex.ResponseMetadata(resp) })
		}

		if _, logErr := r.client.LogPromptCall(ctx, ev); logErr != nil {
			clog.FromContext(ctx).Warn("instrumented call not recorded",
				"target", target.Name(), "error", logErr)
		}
		return resp, err
	}
}

// The safe* helpers absorb extractor panics: observation must never change
// the observed call's outcome.

func safeString(f func() string) (s string) {
	defer func() { _ = recover() }()
	return f()
}

func safeUsage(f func() (int, int)) (in, out int) {
	defer func() { _ = recover() }()
	in, out = f()
	return in, out
}

func safeMetadata(f func() map[string]any) (m map[string]any) {
	defer func() { _ = recover() }()
	return f()
}
