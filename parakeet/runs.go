package parakeet

import (
	"context"
	"fmt"
	"net/http"
)

// CreateRun starts a run on an existing thread.
func (c *Client) CreateRun(ctx context.Context, threadID string, req CreateRunRequest) (*Run, error) {
	if threadID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id is required")
	}
	if req.AssistantID == "" {
		return nil, newError(ErrCodeInvalidRequest, "assistant_id is required")
	}
	var run Run
	path := fmt.Sprintf("/threads/%s/runs", threadID)
	if _, err := c.do(ctx, "CreateRun", http.MethodPost, path, nil, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateThreadAndRun creates a thread and starts a run on it in one call.
func (c *Client) CreateThreadAndRun(ctx context.Context, req CreateThreadAndRunRequest) (*Run, error) {
	if req.AssistantID == "" {
		return nil, newError(ErrCodeInvalidRequest, "assistant_id is required")
	}
	var run Run
	if _, err := c.do(ctx, "CreateThreadAndRun", http.MethodPost, "/threads/runs", nil, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// RetrieveRun fetches a run by ID.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, _, err := c.retrieveRun(ctx, threadID, runID)
	return run, err
}

// retrieveRun also surfaces the response headers so the polling loop can read
// the server-suggested delay.
func (c *Client) retrieveRun(ctx context.Context, threadID, runID string) (*Run, http.Header, error) {
	if threadID == "" || runID == "" {
		return nil, nil, newError(ErrCodeInvalidRequest, "thread_id and run_id are required")
	}
	var run Run
	path := fmt.Sprintf("/threads/%s/runs/%s", threadID, runID)
	header, err := c.do(ctx, "RetrieveRun", http.MethodGet, path, nil, nil, &run)
	if err != nil {
		return nil, nil, err
	}
	return &run, header, nil
}

// CancelRun requests cancellation of an in-flight run. The returned run is
// usually in cancelling; observe the transition to cancelled with PollRun or
// a waiter.
func (c *Client) CancelRun(ctx context.Context, threadID, runID string) (*Run, error) {
	if threadID == "" || runID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id and run_id are required")
	}
	var run Run
	path := fmt.Sprintf("/threads/%s/runs/%s/cancel", threadID, runID)
	if _, err := c.do(ctx, "CancelRun", http.MethodPost, path, nil, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns one page of runs on a thread.
func (c *Client) ListRuns(ctx context.Context, threadID string, params ListParams) (*Page[Run], error) {
	if threadID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id is required")
	}
	var envelope listEnvelope[Run]
	path := fmt.Sprintf("/threads/%s/runs", threadID)
	if _, err := c.do(ctx, "ListRuns", http.MethodGet, path, params.query(), nil, &envelope); err != nil {
		return nil, err
	}
	return pageFromEnvelope(envelope), nil
}

// NewRunsPaginator pages through all runs on a thread.
func NewRunsPaginator(c *Client, threadID string, params ListParams) *Paginator[Run] {
	return newPaginator(params.After, func(ctx context.Context, after string) (*Page[Run], error) {
		p := params
		p.After = after
		return c.ListRuns(ctx, threadID, p)
	})
}

// SubmitToolOutputs unblocks a run in requires_action by supplying the
// outputs of the tool calls it requested.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, req SubmitToolOutputsRequest) (*Run, error) {
	if threadID == "" || runID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id and run_id are required")
	}
	if len(req.ToolOutputs) == 0 {
		return nil, newError(ErrCodeInvalidRequest, "tool_outputs must not be empty")
	}
	var run Run
	path := fmt.Sprintf("/threads/%s/runs/%s/submit_tool_outputs", threadID, runID)
	if _, err := c.do(ctx, "SubmitToolOutputs", http.MethodPost, path, nil, req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// RetrieveRunStep fetches a single run step.
func (c *Client) RetrieveRunStep(ctx context.Context, threadID, runID, stepID string) (*RunStep, error) {
	if threadID == "" || runID == "" || stepID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id, run_id and step_id are required")
	}
	var step RunStep
	path := fmt.Sprintf("/threads/%s/runs/%s/steps/%s", threadID, runID, stepID)
	if _, err := c.do(ctx, "RetrieveRunStep", http.MethodGet, path, nil, nil, &step); err != nil {
		return nil, err
	}
	return &step, nil
}

// ListRunSteps returns one page of steps for a run.
func (c *Client) ListRunSteps(ctx context.Context, threadID, runID string, params ListParams) (*Page[RunStep], error) {
	if threadID == "" || runID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id and run_id are required")
	}
	var envelope listEnvelope[RunStep]
	path := fmt.Sprintf("/threads/%s/runs/%s/steps", threadID, runID)
	if _, err := c.do(ctx, "ListRunSteps", http.MethodGet, path, params.query(), nil, &envelope); err != nil {
		return nil, err
	}
	return pageFromEnvelope(envelope), nil
}

// NewRunStepsPaginator pages through all steps of a run.
func NewRunStepsPaginator(c *Client, threadID, runID string, params ListParams) *Paginator[RunStep] {
	return newPaginator(params.After, func(ctx context.Context, after string) (*Page[RunStep], error) {
		p := params
		p.After = after
		return c.ListRunSteps(ctx, threadID, runID, p)
	})
}
