package parakeet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRunStepDetailsMessageCreation(t *testing.T) {
	raw := []byte(`{"type":"message_creation","message_creation":{"message_id":"msg_7"}}`)

	details := decodeRunStepDetails(raw)
	mc, ok := details.(*MessageCreationDetails)
	require.True(t, ok, "got %T", details)
	assert.Equal(t, "msg_7", mc.MessageID)
}

func TestDecodeRunStepDetailsToolCalls(t *testing.T) {
	raw := []byte(`{
		"type": "tool_calls",
		"tool_calls": [
			{"id":"call_1","type":"function","function":{"name":"lookup","arguments":"{}"}},
			{"id":"call_2","type":"quantum_search","payload":{"qubits":4}}
		]
	}`)

	details := decodeRunStepDetails(raw)
	tc, ok := details.(*ToolCallsDetails)
	require.True(t, ok, "got %T", details)
	require.Len(t, tc.ToolCalls, 2)

	assert.True(t, tc.ToolCalls[0].Known())
	require.NotNil(t, tc.ToolCalls[0].Function)
	assert.Equal(t, "lookup", tc.ToolCalls[0].Function.Name)

	// Unmodeled tool type keeps its raw JSON.
	assert.False(t, tc.ToolCalls[1].Known())
	assert.Contains(t, string(tc.ToolCalls[1].Raw), "quantum_search")
}

func TestDecodeRunStepDetailsUnknownVariant(t *testing.T) {
	raw := []byte(`{"type":"vector_indexing","vector_indexing":{"index":"main"}}`)

	details := decodeRunStepDetails(raw)
	unknown, ok := details.(*UnknownDetails)
	require.True(t, ok, "got %T", details)
	assert.Equal(t, "vector_indexing", unknown.Tag)
	assert.JSONEq(t, string(raw), string(unknown.Raw))
}

type countingVisitor struct {
	messageCreation int
	toolCalls       int
	unknown         int
}

func (v *countingVisitor) VisitMessageCreation(*MessageCreationDetails) error {
	v.messageCreation++
	return nil
}
func (v *countingVisitor) VisitToolCalls(*ToolCallsDetails) error {
	v.toolCalls++
	return nil
}
func (v *countingVisitor) VisitUnknown(*UnknownDetails) error {
	v.unknown++
	return nil
}

func TestVisitRunStepDetailsDispatch(t *testing.T) {
	visitor := &countingVisitor{}

	require.NoError(t, VisitRunStepDetails(&MessageCreationDetails{MessageID: "msg_1"}, visitor))
	require.NoError(t, VisitRunStepDetails(&ToolCallsDetails{}, visitor))
	require.NoError(t, VisitRunStepDetails(&UnknownDetails{Tag: "x"}, visitor))
	require.NoError(t, VisitRunStepDetails(nil, visitor))

	assert.Equal(t, 1, visitor.messageCreation)
	assert.Equal(t, 1, visitor.toolCalls)
	assert.Equal(t, 1, visitor.unknown)
}

func TestRunStepJSONRoundTrip(t *testing.T) {
	step := RunStep{
		ID:       "step_1",
		Object:   "thread.run.step",
		RunID:    "run_1",
		ThreadID: "thread_1",
		Type:     "message_creation",
		Status:   RunStatusCompleted,
		Details:  &MessageCreationDetails{MessageID: "msg_9"},
	}

	data, err := json.Marshal(step)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message_creation"`)

	var decoded RunStep
	require.NoError(t, json.Unmarshal(data, &decoded))
	mc, ok := decoded.Details.(*MessageCreationDetails)
	require.True(t, ok, "got %T", decoded.Details)
	assert.Equal(t, "msg_9", mc.MessageID)
}

func TestRunStepUnknownDetailsSurviveRoundTrip(t *testing.T) {
	raw := []byte(`{
		"id": "step_2",
		"object": "thread.run.step",
		"run_id": "run_1",
		"thread_id": "thread_1",
		"type": "vector_indexing",
		"status": "completed",
		"step_details": {"type":"vector_indexing","vector_indexing":{"index":"main"}}
	}`)

	var step RunStep
	require.NoError(t, json.Unmarshal(raw, &step))
	unknown, ok := step.Details.(*UnknownDetails)
	require.True(t, ok, "got %T", step.Details)

	data, err := json.Marshal(step)
	require.NoError(t, err)
	assert.Contains(t, string(data), "vector_indexing")
	assert.Contains(t, string(data), `"index":"main"`)

	_ = unknown
}

func TestRunStatusTerminal(t *testing.T) {
	terminal := []RunStatus{
		RunStatusCompleted, RunStatusFailed, RunStatusCancelled,
		RunStatusExpired, RunStatusIncomplete, RunStatusRequiresAction,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	nonTerminal := []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusCancelling}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}
