// Package redact scrubs PII from serialized events before they leave the
// process. Patterns run against the JSON form of the whole event, so
// redaction applies uniformly no matter which field holds the sensitive
// text.
package redact

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
)

// Rule pairs a pattern with its replacement placeholder.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Placeholder string
}

// DefaultRules returns the built-in PII patterns, applied in order. The
// placeholders contain no digits or @, so re-running the rules over already
// redacted output is a no-op.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "email",
			Pattern:     regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			Placeholder: "[REDACTED_EMAIL]",
		},
		{
			Name:        "credit_card",
			Pattern:     regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`),
			Placeholder: "[REDACTED_CC]",
		},
		{
			Name:        "ssn",
			Pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Placeholder: "[REDACTED_SSN]",
		},
		{
			// Separator required between groups so plain 10-digit numbers
			// (ids, token counts) are left alone.
			Name:        "phone",
			Pattern:     regexp.MustCompile(`\b\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`),
			Placeholder: "[REDACTED_PHONE]",
		},
	}
}

// Redactor applies an ordered rule set to serialized events. Safe for
// concurrent use; rules can be swapped at runtime by a config reloader.
type Redactor struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	rules   []Rule
}

// New returns a Redactor with the default rules.
func New(enabled bool) *Redactor {
	r := &Redactor{rules: DefaultRules()}
	r.enabled.Store(enabled)
	return r
}

// SetRules replaces the active rule set.
func (r *Redactor) SetRules(rules []Rule) {
	r.mu.Lock()
	r.rules = rules
	r.mu.Unlock()
}

// Enabled reports whether redaction is on.
func (r *Redactor) Enabled() bool { return r.enabled.Load() }

// Apply scrubs a serialized event. When disabled it is the identity
// function. On a serialization failure the original event is returned
// unredacted and a warning is logged; Apply never fails.
func (r *Redactor) Apply(ctx context.Context, event map[string]any) map[string]any {
	if !r.enabled.Load() {
		return event
	}

	raw, err := json.Marshal(event)
	if err != nil {
		clog.FromContext(ctx).Warn("redaction skipped: event not serializable", "error", err)
		return event
	}

	s := string(raw)
	r.mu.RLock()
	for _, rule := range r.rules {
		s = rule.Pattern.ReplaceAllString(s, rule.Placeholder)
	}
	r.mu.RUnlock()

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		clog.FromContext(ctx).Warn("redaction skipped: scrubbed event not parseable", "error", err)
		return event
	}
	return out
}
