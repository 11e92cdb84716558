package parakeet

import "encoding/json"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// Terminal reports whether the run will make no further state transitions.
// requires_action counts: the run is parked until the caller submits tool
// outputs, so polling past it would never return.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled,
		RunStatusExpired, RunStatusIncomplete, RunStatusRequiresAction:
		return true
	default:
		return false
	}
}

// Thread is a conversation container owned by the service.
type Thread struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// MessageContent is one content block of a message.
type MessageContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Message is a single message on a thread.
type Message struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	ThreadID  string            `json:"thread_id"`
	Role      string            `json:"role"`
	Content   []MessageContent  `json:"content"`
	RunID     string            `json:"run_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// RunError describes why a run ended in a failure state.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FunctionCall carries the name and serialized arguments of a requested
// function invocation.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Output    string `json:"output,omitempty"`
}

// ToolCall is one tool invocation requested by a run. Servers may introduce
// new tool types; unrecognized ones keep their raw JSON in Raw so callers can
// inspect them without the SDK losing data.
type ToolCall struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Function *FunctionCall `json:"function,omitempty"`

	// Raw holds the original JSON for tool types this SDK version does not
	// model. Empty for known types.
	Raw json.RawMessage `json:"-"`
}

func (t *ToolCall) UnmarshalJSON(data []byte) error {
	type alias ToolCall
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = ToolCall(a)
	if t.Type != "function" {
		t.Raw = append(json.RawMessage(nil), data...)
	}
	return nil
}

// Known reports whether this SDK version models the tool call's type.
func (t *ToolCall) Known() bool { return len(t.Raw) == 0 }

// SubmitToolOutputsAction lists the tool calls a run is blocked on.
type SubmitToolOutputsAction struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// RequiredAction describes what the caller must do before a run in
// requires_action can continue.
type RequiredAction struct {
	Type              string                   `json:"type"`
	SubmitToolOutputs *SubmitToolOutputsAction `json:"submit_tool_outputs,omitempty"`
}

// Run is a single execution of an assistant against a thread.
type Run struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	CreatedAt      int64             `json:"created_at"`
	ThreadID       string            `json:"thread_id"`
	AssistantID    string            `json:"assistant_id"`
	Status         RunStatus         `json:"status"`
	Model          string            `json:"model,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	StartedAt      *int64            `json:"started_at,omitempty"`
	CompletedAt    *int64            `json:"completed_at,omitempty"`
	CancelledAt    *int64            `json:"cancelled_at,omitempty"`
	FailedAt       *int64            `json:"failed_at,omitempty"`
	ExpiresAt      *int64            `json:"expires_at,omitempty"`
	LastError      *RunError         `json:"last_error,omitempty"`
	RequiredAction *RequiredAction   `json:"required_action,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// RunStep is one unit of work performed during a run.
type RunStep struct {
	ID          string         `json:"id"`
	Object      string         `json:"object"`
	CreatedAt   int64          `json:"created_at"`
	RunID       string         `json:"run_id"`
	ThreadID    string         `json:"thread_id"`
	Type        string         `json:"type"`
	Status      RunStatus      `json:"status"`
	CompletedAt *int64         `json:"completed_at,omitempty"`
	LastError   *RunError      `json:"last_error,omitempty"`
	Details     RunStepDetails `json:"-"`
}

func (s *RunStep) UnmarshalJSON(data []byte) error {
	type alias RunStep
	var a struct {
		alias
		StepDetails json.RawMessage `json:"step_details"`
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = RunStep(a.alias)
	if len(a.StepDetails) > 0 {
		s.Details = decodeRunStepDetails(a.StepDetails)
	}
	return nil
}

func (s RunStep) MarshalJSON() ([]byte, error) {
	type alias RunStep
	out := struct {
		alias
		StepDetails RunStepDetails `json:"step_details,omitempty"`
	}{alias: alias(s), StepDetails: s.Details}
	return json.Marshal(out)
}

// ToolOutput is the caller-supplied result for one blocked tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// DeletionStatus confirms a delete operation.
type DeletionStatus struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// CreateMessageRequest adds a message to a thread.
type CreateMessageRequest struct {
	Role     string            `json:"role"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateThreadRequest creates a thread, optionally seeded with messages.
type CreateThreadRequest struct {
	Messages []CreateMessageRequest `json:"messages,omitempty"`
	Metadata map[string]string      `json:"metadata,omitempty"`
}

// CreateRunRequest starts a run on an existing thread.
type CreateRunRequest struct {
	AssistantID  string            `json:"assistant_id"`
	Model        string            `json:"model,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// CreateThreadAndRunRequest creates a thread and starts a run on it in one
// call.
type CreateThreadAndRunRequest struct {
	AssistantID  string               `json:"assistant_id"`
	Thread       *CreateThreadRequest `json:"thread,omitempty"`
	Model        string               `json:"model,omitempty"`
	Instructions string               `json:"instructions,omitempty"`
	Metadata     map[string]string    `json:"metadata,omitempty"`
}

// SubmitToolOutputsRequest unblocks a run in requires_action.
type SubmitToolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
}

// ListParams controls cursor pagination for list operations.
type ListParams struct {
	// Limit caps the page size; the service applies its own default and
	// maximum when zero or out of range.
	Limit int
	// Order is "asc" or "desc" by creation time.
	Order string
	// After resumes listing from the item following this ID.
	After string
}

type listEnvelope[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	FirstID string `json:"first_id"`
	LastID  string `json:"last_id"`
	HasMore bool   `json:"has_more"`
}
