// Package anthropicmsg instruments the Anthropic Messages surface of
// github.com/anthropics/anthropic-sdk-go, mirroring openaichat for the
// Claude API.
package anthropicmsg

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/watchllm/watchllm-go/instrument"
)

// TargetName identifies the instrumented method in the registry.
const TargetName = "anthropic.messages.new"

// Service is the subset of the SDK's message client used here. Satisfied by
// *anthropic.MessageService, or a mock in tests.
type Service interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type request struct {
	params anthropic.MessageNewParams
	opts   []option.RequestOption
}

// Observed is the instrumented message handle.
type Observed struct {
	target *instrument.FuncTarget
}

// Instrument installs an observing wrapper around svc in the registry and
// returns the handle calls should go through.
func Instrument(reg *instrument.Registry, svc Service) *Observed {
	target := instrument.NewFuncTarget(TargetName, "anthropic",
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

// New issues the message through the observing wrapper.
func (o *Observed) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	resp, err := o.target.Call(ctx, request{params: params, opts: opts})
	msg, _ := resp.(*anthropic.Message)
	return msg, err
}

// Target exposes the registry target for Remove.
func (o *Observed) Target() instrument.Target { return o.target }

type badRequestError struct{}

func (badRequestError) Error() string { return "anthropicmsg: unexpected request type" }

var errBadRequest = badRequestError{}

type extractor struct{}

func (extractor) Model(req any) string {
	r, ok := req.(request)
	if !ok {
		return ""
	}
	return string(r.params.Model)
}

// Prompt renders system blocks first, then the conversation. Only text
// blocks contribute.
func (extractor) Prompt(req any) string {
	r, ok := req.(request)
	if !ok {
		return ""
	}
	var lines []string
	for _, block := range r.params.System {
		if block.Text != "" {
			lines = append(lines, "system: "+block.Text)
		}
	}
	for _, msg := range r.params.Messages {
		var parts []string
		for _, block := range msg.Content {
			if block.OfText != nil && block.OfText.Text != "" {
				parts = append(parts, block.OfText.Text)
			}
		}
		if len(parts) == 0 {
			continue
		}
		lines = append(lines, string(msg.Role)+": "+strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

func (extractor) ResponseText(resp any) string {
	msg, ok := resp.(*anthropic.Message)
	if !ok || msg == nil {
		return ""
	}
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "")
}

func (extractor) Usage(resp any) (int, int) {
	msg, ok := resp.(*anthropic.Message)
	if !ok || msg == nil {
		return 0, 0
	}
	return int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
}

func (extractor) ResponseMetadata(resp any) map[string]any {
	msg, ok := resp.(*anthropic.Message)
	if !ok || msg == nil {
		return nil
	}
	return map[string]any{
		"id":          msg.ID,
		"model":       string(msg.Model),
		"stop_reason": string(msg.StopReason),
	}
}
