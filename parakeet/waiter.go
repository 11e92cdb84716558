package parakeet

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RunWaiterOptions configures a RunWaiter.
type RunWaiterOptions struct {
	// Until lists the statuses that satisfy the wait. Defaults to completed.
	Until []RunStatus
	// FailOn lists statuses that abort the wait with a *WaitFailedError.
	// Defaults to failed, cancelled and expired when Until is empty or only
	// contains completed.
	FailOn []RunStatus
	// MinDelay and MaxDelay bound the backoff between retrieves.
	// Defaults: 500ms and 10s.
	MinDelay time.Duration
	MaxDelay time.Duration
	// MaxWait caps the total wait. Default: 5 minutes.
	MaxWait time.Duration
}

// RunWaiter polls a run's describe operation until it reaches one of the
// target statuses, enters a fatal status, or the maximum wait elapses.
// Delays between attempts follow capped exponential backoff with jitter.
type RunWaiter struct {
	client *Client
	opts   RunWaiterOptions
}

// NewRunWaiter builds a waiter over c with defaults applied.
func NewRunWaiter(c *Client, opts RunWaiterOptions) *RunWaiter {
	if len(opts.Until) == 0 {
		opts.Until = []RunStatus{RunStatusCompleted}
	}
	if len(opts.FailOn) == 0 && onlyCompleted(opts.Until) {
		opts.FailOn = []RunStatus{RunStatusFailed, RunStatusCancelled, RunStatusExpired}
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 10 * time.Second
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Minute
	}
	return &RunWaiter{client: c, opts: opts}
}

// Wait blocks until the run satisfies the waiter or the wait fails. On
// timeout it returns a *WaitTimeoutError; on a fatal status a
// *WaitFailedError carrying the final run.
func (w *RunWaiter) Wait(ctx context.Context, threadID, runID string) (*Run, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.opts.MinDelay
	policy.MaxInterval = w.opts.MaxDelay
	policy.MaxElapsedTime = w.opts.MaxWait
	policy.Reset()

	started := time.Now()
	var lastStatus RunStatus

	for {
		run, err := w.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return nil, err
		}
		lastStatus = run.Status

		if statusIn(run.Status, w.opts.Until) {
			return run, nil
		}
		if statusIn(run.Status, w.opts.FailOn) {
			return nil, &WaitFailedError{Status: run.Status, Run: run}
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return nil, &WaitTimeoutError{
				LastStatus: lastStatus,
				Waited:     time.Since(started).Round(time.Millisecond).String(),
			}
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

func statusIn(s RunStatus, set []RunStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func onlyCompleted(set []RunStatus) bool {
	for _, s := range set {
		if s != RunStatusCompleted {
			return false
		}
	}
	return true
}
