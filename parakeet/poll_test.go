package parakeet

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
)

// scriptedRunHandler returns the scripted statuses one per request, repeating
// the last one once the script is exhausted.
func scriptedRunHandler(statuses []RunStatus, pollAfterMs int) (http.Handler, *atomic.Int64) {
	var calls atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		idx := int(n) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		status := statuses[idx]

		if pollAfterMs > 0 && !status.Terminal() {
			w.Header().Set(constants.PollAfterHeader, "5")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Run{
			ID:       "run_1",
			ThreadID: "thread_1",
			Status:   status,
		})
	})
	return handler, &calls
}

func TestPollRunStopsAtFirstTerminalStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []RunStatus
		want     RunStatus
		wantReqs int64
	}{
		{"immediate completion", []RunStatus{RunStatusCompleted}, RunStatusCompleted, 1},
		{"queued then completed", []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusCompleted}, RunStatusCompleted, 3},
		{"failure", []RunStatus{RunStatusInProgress, RunStatusFailed}, RunStatusFailed, 2},
		{"cancellation", []RunStatus{RunStatusCancelling, RunStatusCancelled}, RunStatusCancelled, 2},
		{"expiry", []RunStatus{RunStatusQueued, RunStatusExpired}, RunStatusExpired, 2},
		{"incomplete", []RunStatus{RunStatusInProgress, RunStatusIncomplete}, RunStatusIncomplete, 2},
		{"requires action parks the poll", []RunStatus{RunStatusInProgress, RunStatusRequiresAction}, RunStatusRequiresAction, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, calls := scriptedRunHandler(tt.statuses, 0)
			client, _ := newTestClient(t, handler)

			run, err := client.PollRun(context.Background(), "thread_1", "run_1",
				&PollOptions{Interval: time.Millisecond})
			require.NoError(t, err)
			assert.Equal(t, tt.want, run.Status)
			assert.Equal(t, tt.wantReqs, calls.Load(),
				"poll must stop at the first terminal status")
		})
	}
}

func TestPollRunHonorsServerSuggestedInterval(t *testing.T) {
	handler, calls := scriptedRunHandler([]RunStatus{
		RunStatusQueued, RunStatusInProgress, RunStatusCompleted,
	}, 5)
	client, _ := newTestClient(t, handler)

	// Configured interval is far longer than the test budget; only the
	// 5ms header suggestion lets the poll finish quickly.
	start := time.Now()
	run, err := client.PollRun(context.Background(), "thread_1", "run_1",
		&PollOptions{Interval: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
	assert.Equal(t, int64(3), calls.Load())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestPollRunContextCancellation(t *testing.T) {
	handler, _ := scriptedRunHandler([]RunStatus{RunStatusInProgress}, 0)
	client, _ := newTestClient(t, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.PollRun(ctx, "thread_1", "run_1", &PollOptions{Interval: time.Hour})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollRunPropagatesRetrieveError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"resource_not_found","message":"gone"}}`))
	}))

	_, err := client.PollRun(context.Background(), "thread_1", "run_1", nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestCreateRunAndPoll(t *testing.T) {
	var retrieves atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := RunStatusQueued
		if r.Method == http.MethodGet {
			if retrieves.Add(1) >= 2 {
				status = RunStatusCompleted
			} else {
				status = RunStatusInProgress
			}
		}
		json.NewEncoder(w).Encode(Run{ID: "run_1", ThreadID: "thread_1", Status: status})
	}))

	run, err := client.CreateRunAndPoll(context.Background(), "thread_1",
		CreateRunRequest{AssistantID: "asst_1"}, &PollOptions{Interval: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
}

func TestPollAfterParsing(t *testing.T) {
	header := http.Header{}
	_, ok := pollAfter(header)
	assert.False(t, ok)

	header.Set(constants.PollAfterHeader, "250")
	d, ok := pollAfter(header)
	assert.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, d)

	header.Set(constants.PollAfterHeader, "junk")
	_, ok = pollAfter(header)
	assert.False(t, ok)

	header.Set(constants.PollAfterHeader, "-5")
	_, ok = pollAfter(header)
	assert.False(t, ok)

	// Zero would busy-spin the poll loop.
	header.Set(constants.PollAfterHeader, "0")
	_, ok = pollAfter(header)
	assert.False(t, ok)
}
