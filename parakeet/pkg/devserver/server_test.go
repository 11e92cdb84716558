package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parakeet-ai/parakeet-go/parakeet"
)

func newTestServerAndClient(t *testing.T, opts Options) (*parakeet.Client, *httptest.Server) {
	t.Helper()
	if opts.StepEvery == 0 {
		opts.StepEvery = 20 * time.Millisecond
	}
	server := New(opts)

	ts := httptest.NewServer(server.Router(nil))
	t.Cleanup(ts.Close)

	key := opts.APIKey
	if key == "" {
		key = "dev"
	}
	client, err := parakeet.NewClient(parakeet.Config{
		APIKey:  key,
		BaseURL: ts.URL,
	})
	require.NoError(t, err)
	return client, ts
}

func TestRunLifecycleCompletes(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{})
	ctx := context.Background()

	run, err := client.CreateThreadAndRun(ctx, parakeet.CreateThreadAndRunRequest{
		AssistantID: "asst_1",
		Thread: &parakeet.CreateThreadRequest{
			Messages: []parakeet.CreateMessageRequest{{Role: "user", Content: "hi"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, parakeet.RunStatusQueued, run.Status)

	final, err := client.PollRun(ctx, run.ThreadID, run.ID,
		&parakeet.PollOptions{Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, parakeet.RunStatusCompleted, final.Status)
	assert.NotNil(t, final.CompletedAt)

	// A completed run leaves an assistant message and a creation step.
	msgs, err := client.ListMessages(ctx, run.ThreadID, parakeet.ListParams{})
	require.NoError(t, err)
	require.Len(t, msgs.Items, 2)
	assert.Equal(t, "assistant", msgs.Items[1].Role)

	steps, err := client.ListRunSteps(ctx, run.ThreadID, run.ID, parakeet.ListParams{})
	require.NoError(t, err)
	require.Len(t, steps.Items, 1)
	details, ok := steps.Items[0].Details.(*parakeet.MessageCreationDetails)
	require.True(t, ok, "got %T", steps.Items[0].Details)
	assert.Equal(t, msgs.Items[1].ID, details.MessageID)
}

func TestSimulatedFailure(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{})
	ctx := context.Background()

	run, err := client.CreateThreadAndRun(ctx, parakeet.CreateThreadAndRunRequest{
		AssistantID: "asst_1",
		Metadata:    map[string]string{"simulate": "failed"},
	})
	require.NoError(t, err)

	final, err := client.PollRun(ctx, run.ThreadID, run.ID,
		&parakeet.PollOptions{Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, parakeet.RunStatusFailed, final.Status)
	require.NotNil(t, final.LastError)
	assert.Equal(t, "server_error", final.LastError.Code)
}

func TestRequiresActionAndSubmitToolOutputs(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{})
	ctx := context.Background()

	run, err := client.CreateThreadAndRun(ctx, parakeet.CreateThreadAndRunRequest{
		AssistantID: "asst_1",
		Metadata:    map[string]string{"simulate": "requires_action"},
	})
	require.NoError(t, err)

	parked, err := client.PollRun(ctx, run.ThreadID, run.ID,
		&parakeet.PollOptions{Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, parakeet.RunStatusRequiresAction, parked.Status)
	require.NotNil(t, parked.RequiredAction)
	require.NotNil(t, parked.RequiredAction.SubmitToolOutputs)
	calls := parked.RequiredAction.SubmitToolOutputs.ToolCalls
	require.Len(t, calls, 1)

	final, err := client.SubmitToolOutputsAndPoll(ctx, run.ThreadID, run.ID,
		parakeet.SubmitToolOutputsRequest{
			ToolOutputs: []parakeet.ToolOutput{{ToolCallID: calls[0].ID, Output: `{"answer":42}`}},
		},
		&parakeet.PollOptions{Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, parakeet.RunStatusCompleted, final.Status)

	// The tool step now carries the submitted output.
	steps, err := client.ListRunSteps(ctx, run.ThreadID, run.ID, parakeet.ListParams{})
	require.NoError(t, err)
	var sawToolStep bool
	for _, step := range steps.Items {
		if details, ok := step.Details.(*parakeet.ToolCallsDetails); ok {
			sawToolStep = true
			require.Len(t, details.ToolCalls, 1)
			require.NotNil(t, details.ToolCalls[0].Function)
			assert.Equal(t, `{"answer":42}`, details.ToolCalls[0].Function.Output)
		}
	}
	assert.True(t, sawToolStep)
}

func TestSubmitToolOutputsConflictWhenNotParked(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{StepEvery: time.Minute})
	ctx := context.Background()

	run, err := client.CreateThreadAndRun(ctx, parakeet.CreateThreadAndRunRequest{AssistantID: "asst_1"})
	require.NoError(t, err)

	_, err = client.SubmitToolOutputs(ctx, run.ThreadID, run.ID, parakeet.SubmitToolOutputsRequest{
		ToolOutputs: []parakeet.ToolOutput{{ToolCallID: "call_x", Output: "{}"}},
	})
	require.Error(t, err)

	var apiErr *parakeet.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.HTTPStatus)
}

func TestCancelRun(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{StepEvery: 20 * time.Millisecond})
	ctx := context.Background()

	run, err := client.CreateThreadAndRun(ctx, parakeet.CreateThreadAndRunRequest{AssistantID: "asst_1"})
	require.NoError(t, err)

	cancelled, err := client.CancelRun(ctx, run.ThreadID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, parakeet.RunStatusCancelling, cancelled.Status)

	final, err := client.PollRun(ctx, run.ThreadID, run.ID,
		&parakeet.PollOptions{Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, parakeet.RunStatusCancelled, final.Status)
	assert.NotNil(t, final.CancelledAt)
}

func TestRetrieveRunSetsPollAfterHeader(t *testing.T) {
	_, ts := newTestServerAndClient(t, Options{StepEvery: time.Minute})

	client, err := parakeet.NewClient(parakeet.Config{APIKey: "dev", BaseURL: ts.URL})
	require.NoError(t, err)

	run, err := client.CreateThreadAndRun(context.Background(), parakeet.CreateThreadAndRunRequest{AssistantID: "asst_1"})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/v1/threads/" + run.ThreadID + "/runs/" + run.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "60000", resp.Header.Get("Parakeet-Poll-After-Ms"))
}

func TestListRunsPagination(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{StepEvery: time.Minute})
	ctx := context.Background()

	thread, err := client.CreateThread(ctx, parakeet.CreateThreadRequest{})
	require.NoError(t, err)

	var created []string
	for i := 0; i < 7; i++ {
		run, err := client.CreateRun(ctx, thread.ID, parakeet.CreateRunRequest{AssistantID: "asst_1"})
		require.NoError(t, err)
		created = append(created, run.ID)
	}

	runs, err := parakeet.NewRunsPaginator(client, thread.ID, parakeet.ListParams{Limit: 3}).All(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 7)
	for i, run := range runs {
		assert.Equal(t, created[i], run.ID)
	}
}

func TestAuthRequiredWhenKeyConfigured(t *testing.T) {
	server := New(Options{APIKey: "sekrit", StepEvery: time.Minute})
	ts := httptest.NewServer(server.Router(nil))
	t.Cleanup(ts.Close)

	wrong, err := parakeet.NewClient(parakeet.Config{APIKey: "nope", BaseURL: ts.URL})
	require.NoError(t, err)
	_, err = wrong.CreateThread(context.Background(), parakeet.CreateThreadRequest{})
	require.Error(t, err)
	assert.True(t, parakeet.IsAuth(err))

	right, err := parakeet.NewClient(parakeet.Config{APIKey: "sekrit", BaseURL: ts.URL})
	require.NoError(t, err)
	_, err = right.CreateThread(context.Background(), parakeet.CreateThreadRequest{})
	require.NoError(t, err)
}

func TestUnknownResourcesReturnNotFound(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{})
	ctx := context.Background()

	_, err := client.RetrieveThread(ctx, "thread_missing")
	assert.True(t, parakeet.IsNotFound(err))

	_, err = client.RetrieveRun(ctx, "thread_missing", "run_missing")
	assert.True(t, parakeet.IsNotFound(err))
}

func TestDeleteThread(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{})
	ctx := context.Background()

	thread, err := client.CreateThread(ctx, parakeet.CreateThreadRequest{})
	require.NoError(t, err)

	status, err := client.DeleteThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.True(t, status.Deleted)

	_, err = client.RetrieveThread(ctx, thread.ID)
	assert.True(t, parakeet.IsNotFound(err))
}

func TestStreamRunEventsEndToEnd(t *testing.T) {
	client, _ := newTestServerAndClient(t, Options{StepEvery: 40 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run, err := client.CreateThreadAndRun(ctx, parakeet.CreateThreadAndRunRequest{AssistantID: "asst_1"})
	require.NoError(t, err)

	stream, err := client.StreamRun(ctx, run.ThreadID, run.ID)
	require.NoError(t, err)
	defer stream.Close()

	var sawDelta bool
	var final *parakeet.RunEvent
	for {
		ev, more, err := stream.Next(ctx)
		require.NoError(t, err)
		if ev != nil {
			if ev.Type == parakeet.RunEventDelta {
				sawDelta = true
			}
			final = ev
		}
		if !more {
			break
		}
	}

	require.NotNil(t, final)
	assert.Equal(t, parakeet.RunEventDone, final.Type)
	assert.Equal(t, parakeet.RunStatusCompleted, final.Status)
	assert.True(t, sawDelta)
}

func TestHealthEndpoint(t *testing.T) {
	server := New(Options{})
	ts := httptest.NewServer(server.Router(nil))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
