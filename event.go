package watchllm

import (
	"github.com/watchllm/watchllm-go/internal/cost"
)

// EventType tags the wire shape of a telemetry event.
type EventType string

const (
	EventPromptCall            EventType = "prompt_call"
	EventToolCall              EventType = "tool_call"
	EventAgentStep             EventType = "agent_step"
	EventError                 EventType = "error"
	EventAssertionFailed       EventType = "assertion_failed"
	EventHallucination         EventType = "hallucination_detected"
	EventCostThresholdExceeded EventType = "cost_threshold_exceeded"
)

// Status is the outcome of an observed call or step.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusError           Status = "error"
	StatusTimeout         Status = "timeout"
	StatusAssertionFailed Status = "assertion_failed"
	StatusWarning         Status = "warning"
)

// StepType classifies an agent step.
type StepType string

const (
	StepReasoning  StepType = "reasoning"
	StepToolCall   StepType = "tool_call"
	StepValidation StepType = "validation"
	StepOutput     StepType = "output"
)

// AssertionType classifies a failed assertion.
type AssertionType string

const (
	AssertResponseFormat AssertionType = "response_format"
	AssertContentFilter  AssertionType = "content_filter"
	AssertSafetyCheck    AssertionType = "safety_check"
	AssertCustom         AssertionType = "custom"
)

// DetectionMethod says how a hallucination was identified.
type DetectionMethod string

const (
	DetectHeuristic     DetectionMethod = "heuristic"
	DetectModelEnsemble DetectionMethod = "model_ensemble"
	DetectGroundTruth   DetectionMethod = "ground_truth_verification"
)

// AlertType classifies a performance alert.
type AlertType string

const (
	AlertCostSpike      AlertType = "cost_spike"
	AlertLatencySpike   AlertType = "latency_spike"
	AlertErrorRateSpike AlertType = "error_rate_spike"
	AlertTokenLimit     AlertType = "token_limit"
)

// Severity grades an assertion failure.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EventBase holds the envelope fields a caller may set on any event. Fields
// left zero are filled from the ambient run context and client configuration
// at log time.
type EventBase struct {
	RunID   string   `json:"run_id,omitempty"`
	UserID  string   `json:"user_id,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Release string   `json:"release,omitempty"`
}

func (b *EventBase) base() *EventBase { return b }

// Event is any concrete telemetry record. Implementations are pure data:
// Fields normalizes and serializes the kind-specific payload and cannot fail.
type Event interface {
	Kind() EventType
	base() *EventBase
	fields() map[string]any
	validate() error
}

// ToolCall is a nested tool invocation attached to a PromptCall.
type ToolCall struct {
	ToolName  string            `json:"tool_name"`
	Input     map[string]any    `json:"input,omitempty"`
	Output    map[string]any    `json:"output,omitempty"`
	LatencyMS int64             `json:"latency_ms,omitempty"`
	Status    Status            `json:"status,omitempty"`
	Error     map[string]string `json:"error,omitempty"`
}

func (t ToolCall) toMap() map[string]any {
	return map[string]any{
		"tool_name":  t.ToolName,
		"input":      orMap(t.Input),
		"output":     orMap(t.Output),
		"latency_ms": t.LatencyMS,
		"status":     string(orStatus(t.Status)),
		"error":      t.Error,
	}
}

// PromptCall records one model invocation.
type PromptCall struct {
	EventBase
	Prompt           string `json:"prompt,omitempty"`
	PromptTemplateID string `json:"prompt_template_id,omitempty"`
	Model            string `json:"model,omitempty"`
	ModelVersion     string `json:"model_version,omitempty"`
	TokensInput      int    `json:"tokens_input,omitempty"`
	TokensOutput     int    `json:"tokens_output,omitempty"`
	// CostEstimateUSD overrides the derived estimate when non-zero.
	CostEstimateUSD  float64           `json:"cost_estimate_usd,omitempty"`
	Response         string            `json:"response,omitempty"`
	ResponseMetadata map[string]any    `json:"response_metadata,omitempty"`
	ToolCalls        []ToolCall        `json:"tool_calls,omitempty"`
	Status           Status            `json:"status,omitempty"`
	Error            map[string]string `json:"error,omitempty"`
	LatencyMS        int64             `json:"latency_ms,omitempty"`
}

func (e *PromptCall) Kind() EventType { return EventPromptCall }

func (e *PromptCall) validate() error {
	if e.Prompt == "" && e.Response == "" && e.Model == "" {
		return &ProducerError{Op: "LogPromptCall", Reason: "prompt, response, or model is required"}
	}
	return nil
}

func (e *PromptCall) fields() map[string]any {
	costUSD := e.CostEstimateUSD
	if costUSD == 0 {
		costUSD = cost.Estimate(e.Model, e.TokensInput, e.TokensOutput)
	}
	calls := make([]map[string]any, 0, len(e.ToolCalls))
	for _, tc := range e.ToolCalls {
		calls = append(calls, tc.toMap())
	}
	return map[string]any{
		"prompt":             e.Prompt,
		"prompt_template_id": e.PromptTemplateID,
		"model":              e.Model,
		"model_version":      e.ModelVersion,
		"tokens_input":       e.TokensInput,
		"tokens_output":      e.TokensOutput,
		"cost_estimate_usd":  costUSD,
		"response":           e.Response,
		"response_metadata":  orMap(e.ResponseMetadata),
		"tool_calls":         calls,
		"status":             string(orStatus(e.Status)),
		"error":              e.Error,
		"latency_ms":         e.LatencyMS,
	}
}

// AgentStep records one step of an agent loop.
type AgentStep struct {
	EventBase
	StepNumber int               `json:"step_number,omitempty"`
	StepName   string            `json:"step_name,omitempty"`
	StepType   StepType          `json:"step_type,omitempty"`
	InputData  map[string]any    `json:"input_data,omitempty"`
	OutputData map[string]any    `json:"output_data,omitempty"`
	Reasoning  string            `json:"reasoning,omitempty"`
	Context    map[string]any    `json:"context,omitempty"`
	Status     Status            `json:"status,omitempty"`
	Error      map[string]string `json:"error,omitempty"`
	LatencyMS  int64             `json:"latency_ms,omitempty"`
}

func (e *AgentStep) Kind() EventType { return EventAgentStep }

func (e *AgentStep) validate() error {
	if e.StepName == "" {
		return &ProducerError{Op: "LogAgentStep", Reason: "step name is required"}
	}
	return nil
}

func (e *AgentStep) fields() map[string]any {
	st := e.StepType
	if st == "" {
		st = StepReasoning
	}
	return map[string]any{
		"step_number": e.StepNumber,
		"step_name":   e.StepName,
		"step_type":   string(st),
		"input_data":  orMap(e.InputData),
		"output_data": orMap(e.OutputData),
		"reasoning":   e.Reasoning,
		"context":     orMap(e.Context),
		"status":      string(orStatus(e.Status)),
		"error":       e.Error,
		"latency_ms":  e.LatencyMS,
	}
}

// ErrorEvent records an application error tied to a run.
type ErrorEvent struct {
	EventBase
	Error      map[string]string `json:"error,omitempty"`
	Context    map[string]any    `json:"context,omitempty"`
	StackTrace string            `json:"stack_trace,omitempty"`
}

func (e *ErrorEvent) Kind() EventType { return EventError }

func (e *ErrorEvent) validate() error {
	if len(e.Error) == 0 {
		return &ProducerError{Op: "LogError", Reason: "error descriptor is required"}
	}
	return nil
}

func (e *ErrorEvent) fields() map[string]any {
	return map[string]any{
		"error":       e.Error,
		"context":     orMap(e.Context),
		"stack_trace": e.StackTrace,
	}
}

// AssertionFailed records a failed output assertion.
type AssertionFailed struct {
	EventBase
	AssertionName string        `json:"assertion_name,omitempty"`
	AssertionType AssertionType `json:"assertion_type,omitempty"`
	Expected      any           `json:"expected,omitempty"`
	Actual        any           `json:"actual,omitempty"`
	Severity      Severity      `json:"severity,omitempty"`
}

func (e *AssertionFailed) Kind() EventType { return EventAssertionFailed }

func (e *AssertionFailed) validate() error {
	if e.AssertionName == "" {
		return &ProducerError{Op: "LogAssertionFailed", Reason: "assertion name is required"}
	}
	return nil
}

func (e *AssertionFailed) fields() map[string]any {
	at := e.AssertionType
	if at == "" {
		at = AssertCustom
	}
	sev := e.Severity
	if sev == "" {
		sev = SeverityMedium
	}
	return map[string]any{
		"assertion_name": e.AssertionName,
		"assertion_type": string(at),
		"expected":       e.Expected,
		"actual":         e.Actual,
		"severity":       string(sev),
	}
}

// HallucinationDetected records a flagged model output.
type HallucinationDetected struct {
	EventBase
	DetectionMethod DetectionMethod `json:"detection_method,omitempty"`
	ConfidenceScore float64         `json:"confidence_score,omitempty"`
	FlaggedContent  string          `json:"flagged_content,omitempty"`
	GroundTruth     string          `json:"ground_truth,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

func (e *HallucinationDetected) Kind() EventType { return EventHallucination }

func (e *HallucinationDetected) validate() error {
	if e.FlaggedContent == "" {
		return &ProducerError{Op: "LogHallucination", Reason: "flagged content is required"}
	}
	return nil
}

func (e *HallucinationDetected) fields() map[string]any {
	dm := e.DetectionMethod
	if dm == "" {
		dm = DetectHeuristic
	}
	return map[string]any{
		"detection_method": string(dm),
		"confidence_score": e.ConfidenceScore,
		"flagged_content":  e.FlaggedContent,
		"ground_truth":     e.GroundTruth,
		"recommendations":  orSlice(e.Recommendations),
	}
}

// PerformanceAlert records a threshold breach over a time window.
type PerformanceAlert struct {
	EventBase
	AlertType      AlertType `json:"alert_type,omitempty"`
	Threshold      float64   `json:"threshold,omitempty"`
	ActualValue    float64   `json:"actual_value,omitempty"`
	WindowMinutes  int       `json:"window_minutes,omitempty"`
	AffectedModels []string  `json:"affected_models,omitempty"`
}

func (e *PerformanceAlert) Kind() EventType { return EventCostThresholdExceeded }

func (e *PerformanceAlert) validate() error { return nil }

func (e *PerformanceAlert) fields() map[string]any {
	at := e.AlertType
	if at == "" {
		at = AlertCostSpike
	}
	return map[string]any{
		"alert_type":      string(at),
		"threshold":       e.Threshold,
		"actual_value":    e.ActualValue,
		"window_minutes":  e.WindowMinutes,
		"affected_models": orSlice(e.AffectedModels),
	}
}

func orMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orStatus(s Status) Status {
	if s == "" {
		return StatusSuccess
	}
	return s
}
