package watchllm

import (
	"context"
	"testing"
)

func TestWithRunScoping(t *testing.T) {
	root := context.Background()

	outer := WithRun(root, Run{ID: "X", UserID: "u1"})
	if got := CurrentRunID(outer); got != "X" {
		t.Fatalf("CurrentRunID inside scope = %q, want X", got)
	}

	// Nested scope overrides the id, inherits the user.
	inner := WithRun(outer, Run{ID: "Y"})
	if got := CurrentRunID(inner); got != "Y" {
		t.Fatalf("CurrentRunID in nested scope = %q, want Y", got)
	}
	run, _ := RunFromContext(inner)
	if run.UserID != "u1" {
		t.Fatalf("nested scope lost user: %+v", run)
	}

	// Exiting the nested scope restores the parent's values, not a global
	// default, even when the scoped body panicked.
	func() {
		defer func() { recover() }()
		_ = WithRun(outer, Run{ID: "Z"})
		panic("scoped body failure")
	}()
	if got := CurrentRunID(outer); got != "X" {
		t.Fatalf("CurrentRunID after nested exit = %q, want X", got)
	}
}

func TestWithRunSynthesizesID(t *testing.T) {
	ctx := WithRun(context.Background(), Run{UserID: "u1"})
	run, ok := RunFromContext(ctx)
	if !ok || run.ID == "" {
		t.Fatal("scope without an id must synthesize one")
	}
}

func TestCurrentRunIDWithoutScope(t *testing.T) {
	ctx := context.Background()
	a := CurrentRunID(ctx)
	b := CurrentRunID(ctx)
	if a == "" || b == "" {
		t.Fatal("synthesized ids must be non-empty")
	}
	if a == b {
		t.Fatal("ids outside a scope must not be cached")
	}
}
