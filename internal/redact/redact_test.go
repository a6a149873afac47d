package redact

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestApplyScrubsNestedFields(t *testing.T) {
	r := New(true)
	event := map[string]any{
		"prompt": "reach me at jane.doe@example.com",
		"response_metadata": map[string]any{
			"note": "card 4111-1111-1111-1111 on file",
		},
	}
	got := r.Apply(context.Background(), event)

	if got["prompt"] != "reach me at [REDACTED_EMAIL]" {
		t.Errorf("email not redacted: %v", got["prompt"])
	}
	meta := got["response_metadata"].(map[string]any)
	if meta["note"] != "card [REDACTED_CC] on file" {
		t.Errorf("credit card not redacted: %v", meta["note"])
	}
}

func TestApplyIdempotent(t *testing.T) {
	r := New(true)
	event := map[string]any{
		"prompt":  "ssn 123-45-6789, phone (555) 867-5309",
		"context": map[string]any{"email": "a@b.com"},
	}
	once := r.Apply(context.Background(), event)
	twice := r.Apply(context.Background(), once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("redaction not idempotent:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestApplyDisabledIsIdentity(t *testing.T) {
	r := New(false)
	event := map[string]any{"prompt": "a@b.com"}
	got := r.Apply(context.Background(), event)
	if got["prompt"] != "a@b.com" {
		t.Fatalf("disabled redactor modified event: %v", got)
	}
}

func TestApplyUnserializableFallsBack(t *testing.T) {
	r := New(true)
	event := map[string]any{
		"prompt": "a@b.com",
		"bad":    make(chan int), // not JSON-serializable
	}
	got := r.Apply(context.Background(), event)
	if got["prompt"] != "a@b.com" {
		t.Fatal("fallback must return the original event unredacted")
	}
}

func TestPhonePatternRequiresSeparators(t *testing.T) {
	r := New(true)
	event := map[string]any{"note": "order 5558675309 shipped"}
	got := r.Apply(context.Background(), event)
	if got["note"] != "order 5558675309 shipped" {
		t.Fatalf("bare 10-digit number was redacted: %v", got["note"])
	}
}

func TestCompileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redact.yaml")
	data := `
extra_patterns:
  - name: api_key
    regex: "wl_[a-z0-9]{16}"
disable:
  - phone
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	rules, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	names := make(map[string]bool)
	for _, rule := range rules {
		names[rule.Name] = true
	}
	if names["phone"] {
		t.Error("disabled rule still present")
	}
	if !names["api_key"] {
		t.Error("extra pattern missing")
	}

	r := New(true)
	r.SetRules(rules)
	got := r.Apply(context.Background(), map[string]any{"prompt": "key wl_abcd1234efgh5678 leaked"})
	if got["prompt"] != "key [REDACTED_API_KEY] leaked" {
		t.Errorf("extra pattern not applied: %v", got["prompt"])
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not be an error, got %v", err)
	}
	if cfg != nil {
		t.Fatal("missing file must yield nil config")
	}
}

func TestCompileRejectsBadRegex(t *testing.T) {
	_, err := Compile(&Config{ExtraPatterns: []PatternDef{{Name: "bad", Regex: "("}}})
	if err == nil {
		t.Fatal("expected error for invalid regex")
	}
}
