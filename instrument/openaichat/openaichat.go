// Package openaichat instruments the OpenAI chat-completions surface of
// github.com/openai/openai-go. Instrument wraps a completion service in an
// Observed handle whose New method is routed through the registry, so every
// call emits a PromptCall without the caller changing its request code.
package openaichat

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/watchllm/watchllm-go/instrument"
)

// TargetName identifies the instrumented method in the registry.
const TargetName = "openai.chat.completions.new"

// Service is the subset of the SDK's chat-completion client used here.
// Satisfied by *openai.ChatCompletionService, or a mock in tests.
type Service interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// request carries one call's arguments through the registry's untyped
// callable.
type request struct {
	params openai.ChatCompletionNewParams
	opts   []option.RequestOption
}

// Observed is the instrumented completion handle.
type Observed struct {
	target *instrument.FuncTarget
}

// Instrument installs an observing wrapper around svc in the registry and
// returns the handle calls should go through.
func Instrument(reg *instrument.Registry, svc Service) *Observed {
	target := instrument.NewFuncTarget(TargetName, "openai",
		func(ctx context.Context, req any) (any, error) {
			r, ok := req.(request)
			if !ok {
				return nil, errBadRequest
			}
			return svc.New(ctx, r.params, r.opts...)
		})
	reg.Install(target, extractor{})
	return &Observed{target: target}
}

// New issues the completion through the observing wrapper.
func (o *Observed) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	resp, err := o.target.Call(ctx, request{params: params, opts: opts})
	completion, _ := resp.(*openai.ChatCompletion)
	return completion, err
}

// Target exposes the registry target for Remove.
func (o *Observed) Target() instrument.Target { return o.target }

type badRequestError struct{}

func (badRequestError) Error() string { return "openaichat: unexpected request type" }

var errBadRequest = badRequestError{}

// extractor reads prompt, response text, and usage off the typed SDK
// structures. Missing fields yield zero values.
type extractor struct{}

func (extractor) Model(req any) string {
	r, ok := req.(request)
	if !ok {
		return ""
	}
	return string(r.params.Model)
}

func (extractor) Prompt(req any) string {
	r, ok := req.(request)
	if !ok {
		return ""
	}
	var lines []string
	for _, msg := range r.params.Messages {
		switch {
		case msg.OfSystem != nil:
			lines = append(lines, "system: "+systemText(msg.OfSystem))
		case msg.OfUser != nil:
			lines = append(lines, "user: "+userText(msg.OfUser))
		case msg.OfAssistant != nil:
			lines = append(lines, "assistant: "+assistantText(msg.OfAssistant))
		}
	}
	return strings.Join(lines, "\n")
}

func systemText(m *openai.ChatCompletionSystemMessageParam) string {
	if m.Content.OfString.Valid() {
		return m.Content.OfString.Value
	}
	var parts []string
	for _, p := range m.Content.OfArrayOfContentParts {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, " ")
}

func userText(m *openai.ChatCompletionUserMessageParam) string {
	if m.Content.OfString.Valid() {
		return m.Content.OfString.Value
	}
	// Multi-part content: only text parts contribute.
	var parts []string
	for _, p := range m.Content.OfArrayOfContentParts {
		if p.OfText != nil && p.OfText.Text != "" {
			parts = append(parts, p.OfText.Text)
		}
	}
	return strings.Join(parts, " ")
}

func assistantText(m *openai.ChatCompletionAssistantMessageParam) string {
	if m.Content.OfString.Valid() {
		return m.Content.OfString.Value
	}
	return ""
}

func (extractor) ResponseText(resp any) string {
	completion, ok := resp.(*openai.ChatCompletion)
	if !ok || completion == nil || len(completion.Choices) == 0 {
		return ""
	}
	return completion.Choices[0].Message.Content
}

func (extractor) Usage(resp any) (int, int) {
	completion, ok := resp.(*openai.ChatCompletion)
	if !ok || completion == nil {
		return 0, 0
	}
	return int(completion.Usage.PromptTokens), int(completion.Usage.CompletionTokens)
}

func (extractor) ResponseMetadata(resp any) map[string]any {
	completion, ok := resp.(*openai.ChatCompletion)
	if !ok || completion == nil {
		return nil
	}
	meta := map[string]any{
		"id":    completion.ID,
		"model": completion.Model,
	}
	if len(completion.Choices) > 0 {
		meta["finish_reason"] = string(completion.Choices[0].FinishReason)
	}
	return meta
}
