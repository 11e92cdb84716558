package parakeet

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
)

// PollOptions customizes PollRun.
type PollOptions struct {
	// Interval between retrieves when the server does not suggest one via
	// the Parakeet-Poll-After-Ms header. Defaults to one second.
	Interval time.Duration
}

// PollRun repeatedly retrieves a run until it reaches a terminal status and
// returns the run observed there. No further requests are made after the
// first terminal observation. Between retrieves the loop sleeps for the
// server-suggested interval when the response carries one, else
// opts.Interval. The loop has no attempt bound; cancel ctx to stop waiting
// on a run that never settles.
func (c *Client) PollRun(ctx context.Context, threadID, runID string, opts *PollOptions) (*Run, error) {
	interval := constants.DefaultPollIntervalMs * time.Millisecond
	if opts != nil && opts.Interval > 0 {
		interval = opts.Interval
	}

	for {
		run, header, err := c.retrieveRun(ctx, threadID, runID)
		if err != nil {
			return nil, err
		}
		c.metrics.ObservePollAttempt()

		if run.Status.Terminal() {
			c.logger.Debug("run reached terminal status", "run_id", run.ID, "status", run.Status)
			return run, nil
		}

		delay := interval
		if suggested, ok := pollAfter(header); ok {
			delay = suggested
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// CreateRunAndPoll starts a run and polls it to a terminal status.
func (c *Client) CreateRunAndPoll(ctx context.Context, threadID string, req CreateRunRequest, opts *PollOptions) (*Run, error) {
	run, err := c.CreateRun(ctx, threadID, req)
	if err != nil {
		return nil, err
	}
	return c.PollRun(ctx, threadID, run.ID, opts)
}

// CreateThreadAndRunAndPoll creates a thread, starts a run on it, and polls
// the run to a terminal status.
func (c *Client) CreateThreadAndRunAndPoll(ctx context.Context, req CreateThreadAndRunRequest, opts *PollOptions) (*Run, error) {
	run, err := c.CreateThreadAndRun(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.PollRun(ctx, run.ThreadID, run.ID, opts)
}

// SubmitToolOutputsAndPoll submits tool outputs and polls the resumed run to
// its next terminal status.
func (c *Client) SubmitToolOutputsAndPoll(ctx context.Context, threadID, runID string, req SubmitToolOutputsRequest, opts *PollOptions) (*Run, error) {
	run, err := c.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return nil, err
	}
	return c.PollRun(ctx, threadID, run.ID, opts)
}

func pollAfter(header http.Header) (time.Duration, bool) {
	raw := header.Get(constants.PollAfterHeader)
	if raw == "" {
		return 0, false
	}
	// Zero would turn the poll loop into a busy spin, so it falls back to
	// the configured interval like any other unusable value.
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}
