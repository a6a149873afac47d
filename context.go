package watchllm

import (
	"context"

	"github.com/google/uuid"
)

// Run is the ambient identity shared by every event emitted within a trace
// scope: a run id grouping related events, plus optional user and tags.
type Run struct {
	ID     string
	UserID string
	Tags   []string
}

type runContextKey struct{}

// WithRun enters a trace scope: events logged with the returned context
// inherit the run's id, user, and tags unless set explicitly on the event.
// Zero fields inherit from an enclosing scope; a missing run id is
// synthesized. The previous scope is restored by simply using the parent
// context again, so nesting and early returns need no cleanup.
func WithRun(ctx context.Context, run Run) context.Context {
	if parent, ok := RunFromContext(ctx); ok {
		if run.ID == "" {
			run.ID = parent.ID
		}
		if run.UserID == "" {
			run.UserID = parent.UserID
		}
		if run.Tags == nil {
			run.Tags = parent.Tags
		}
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	return context.WithValue(ctx, runContextKey{}, run)
}

// RunFromContext returns the ambient run, if a trace scope is active.
func RunFromContext(ctx context.Context) (Run, bool) {
	run, ok := ctx.Value(runContextKey{}).(Run)
	return run, ok
}

// CurrentRunID returns the ambient run id, or a fresh id when no scope is
// active. The fresh id is not cached: each call outside a scope yields a new
// one.
func CurrentRunID(ctx context.Context) string {
	if run, ok := RunFromContext(ctx); ok && run.ID != "" {
		return run.ID
	}
	return uuid.NewString()
}
