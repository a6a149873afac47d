package instrument

import (
	"strings"
)

// Extractor pulls a best-effort prompt, model, response text, and token
// usage out of a provider's request/response objects. Implementations must
// degrade to zero values on missing fields, never fail; the registry
// additionally absorbs panics.
type Extractor interface {
	Prompt(req any) string
	Model(req any) string
	ResponseText(resp any) string
	Usage(resp any) (tokensIn, tokensOut int)
	ResponseMetadata(resp any) map[string]any
}

// Format identifies which provider wire shape a map payload uses.
type Format int

const (
	FormatUnknown Format = iota
	FormatAnthropic
	FormatOpenAI
)

// MapExtractor handles duck-typed map[string]any requests and responses in
// either the OpenAI chat-completions or Anthropic messages shape, for
// providers without a dedicated typed adapter.
type MapExtractor struct{}

// DetectFormat examines a parsed response body and determines whether it
// uses the Anthropic or OpenAI shape.
func DetectFormat(body map[string]any) Format {
	// Anthropic: "content" array of typed blocks.
	if content, ok := body["content"].([]any); ok && len(content) > 0 {
		if first, ok := content[0].(map[string]any); ok {
			if _, hasType := first["type"]; hasType {
				return FormatAnthropic
			}
		}
	}
	// OpenAI: "choices" array of objects carrying "message".
	if choices, ok := body["choices"].([]any); ok && len(choices) > 0 {
		if first, ok := choices[0].(map[string]any); ok {
			if _, hasMsg := first["message"]; hasMsg {
				return FormatOpenAI
			}
		}
	}
	return FormatUnknown
}

// Prompt renders "role: content" lines from a messages array. Multi-part
// content contributes only its text parts.
func (MapExtractor) Prompt(req any) string {
	body, ok := req.(map[string]any)
	if !ok {
		return ""
	}
	messages, ok := body["messages"].([]any)
	if !ok {
		return ""
	}

	var lines []string
	for _, item := range messages {
		msg, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := msg["role"].(string)
		text := contentText(msg["content"])
		if role == "" && text == "" {
			continue
		}
		lines = append(lines, role+": "+text)
	}
	return strings.Join(lines, "\n")
}

// contentText flattens a message content value: plain strings pass through,
// part arrays contribute their text parts only.
func contentText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, item := range v {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if t, _ := part["type"].(string); t != "text" {
				continue
			}
			if s, ok := part["text"].(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func (MapExtractor) Model(req any) string {
	body, ok := req.(map[string]any)
	if !ok {
		return ""
	}
	model, _ := body["model"].(string)
	return model
}

func (MapExtractor) ResponseText(resp any) string {
	body, ok := resp.(map[string]any)
	if !ok {
		return ""
	}
	switch DetectFormat(body) {
	case FormatOpenAI:
		return openAIText(body)
	case FormatAnthropic:
		return anthropicText(body)
	}
	return ""
}

// openAIText reads choices[0].message.content.
func openAIText(body map[string]any) string {
	choices, ok := body["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	message, ok := choice["message"].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := message["content"].(string)
	return text
}

// anthropicText concatenates the text blocks of the content array.
func anthropicText(body map[string]any) string {
	content, ok := body["content"].([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, item := range content {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := block["type"].(string); t != "text" {
			continue
		}
		if s, ok := block["text"].(string); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "")
}

// Usage reads the token counters under either provider's field names.
// Numbers arrive as float64 after JSON decoding.
func (MapExtractor) Usage(resp any) (int, int) {
	body, ok := resp.(map[string]any)
	if !ok {
		return 0, 0
	}
	usage, ok := body["usage"].(map[string]any)
	if !ok {
		return 0, 0
	}
	in := intField(usage, "prompt_tokens", "input_tokens")
	out := intField(usage, "completion_tokens", "output_tokens")
	return in, out
}

func intField(m map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case int64:
			return int(v)
		}
	}
	return 0
}

func (MapExtractor) ResponseMetadata(resp any) map[string]any {
	body, ok := resp.(map[string]any)
	if !ok {
		return nil
	}
	meta := map[string]any{}
	for _, k := range []string{"id", "model", "stop_reason"} {
		if v, ok := body[k]; ok {
			meta[k] = v
		}
	}
	if choices, ok := body["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if fr, ok := choice["finish_reason"]; ok {
				meta["finish_reason"] = fr
			}
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

var _ Extractor = MapExtractor{}

// String renders the format tag for logs.
func (f Format) String() string {
	switch f {
	case FormatAnthropic:
		return "anthropic"
	case FormatOpenAI:
		return "openai"
	}
	return "unknown"
}
