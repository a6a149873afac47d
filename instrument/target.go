package instrument

import (
	"context"
	"sync"
)

// CallFunc is the replaceable callable of an instrumented provider method.
type CallFunc func(ctx context.Context, req any) (any, error)

// Target is one instrumentable provider method: a named slot whose callable
// the Registry can substitute and restore.
type Target interface {
	Name() string
	Provider() string
	Callable() CallFunc
	SetCallable(CallFunc)
}

// FuncTarget is the standard Target backed by a function value. Safe for
// concurrent calls while install/remove swap the callable.
type FuncTarget struct {
	name     string
	provider string
	mu       sync.RWMutex
	fn       CallFunc
}

// NewFuncTarget wraps fn as an instrumentable target.
func NewFuncTarget(name, provider string, fn CallFunc) *FuncTarget {
	return &FuncTarget{name: name, provider: provider, fn: fn}
}

func (t *FuncTarget) Name() string     { return t.name }
func (t *FuncTarget) Provider() string { return t.provider }

func (t *FuncTarget) Callable() CallFunc {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fn
}

func (t *FuncTarget) SetCallable(fn CallFunc) {
	t.mu.Lock()
	t.fn = fn
	t.mu.Unlock()
}

// Call invokes the current callable.
func (t *FuncTarget) Call(ctx context.Context, req any) (any, error) {
	return t.Callable()(ctx, req)
}
