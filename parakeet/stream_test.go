package parakeet

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamHandler upgrades, drains the subscribe frame, and replays frames.
func streamHandler(t *testing.T, frames []string) http.Handler {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, sub, err := conn.ReadMessage()
		require.NoError(t, err)
		var subscribe subscribeFrame
		require.NoError(t, json.Unmarshal(sub, &subscribe))
		assert.Equal(t, "subscribe", subscribe.Type)

		for _, frame := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
		}
		// Give the client a beat to read before the connection drops.
		time.Sleep(50 * time.Millisecond)
	})
}

func TestStreamRunDeliversEventsUntilDone(t *testing.T) {
	client, _ := newTestClient(t, streamHandler(t, []string{
		`{"type":"status","status":"in_progress"}`,
		`{"type":"delta","delta":{"text":"hello "}}`,
		`{"type":"delta","delta":{"text":"world"}}`,
		`{"type":"done","run":{"id":"run_1","thread_id":"thread_1","status":"completed"}}`,
	}))

	stream, err := client.StreamRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	defer stream.Close()

	var events []*RunEvent
	for {
		ev, more, err := stream.Next(context.Background())
		require.NoError(t, err)
		if ev != nil {
			events = append(events, ev)
		}
		if !more {
			break
		}
	}

	require.Len(t, events, 4)
	assert.Equal(t, RunEventStatus, events[0].Type)
	assert.Equal(t, RunStatusInProgress, events[0].Status)
	assert.Equal(t, RunEventDelta, events[1].Type)
	assert.JSONEq(t, `{"text":"hello "}`, string(events[1].Delta))

	final := events[3]
	assert.Equal(t, RunEventDone, final.Type)
	require.NotNil(t, final.Run)
	assert.Equal(t, RunStatusCompleted, final.Run.Status)

	// Stream is closed; further calls report exhaustion, not errors.
	ev, more, err := stream.Next(context.Background())
	assert.Nil(t, ev)
	assert.False(t, more)
	assert.NoError(t, err)
}

func TestStreamRunSkipsUnknownFrameTypes(t *testing.T) {
	client, _ := newTestClient(t, streamHandler(t, []string{
		`{"type":"heartbeat"}`,
		`{"type":"done","run":{"id":"run_1","status":"completed"}}`,
	}))

	stream, err := client.StreamRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	defer stream.Close()

	ev, more, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, more)
	require.NotNil(t, ev)
	assert.Equal(t, RunEventDone, ev.Type)
}

func TestStreamRunSurfacesErrorFrames(t *testing.T) {
	client, _ := newTestClient(t, streamHandler(t, []string{
		`{"type":"error","error":{"code":"server_error","message":"backend exploded","fault":"server","details":{"region":"eu-west-1"}}}`,
	}))

	stream, err := client.StreamRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	defer stream.Close()

	_, _, err = stream.Next(context.Background())
	require.Error(t, err)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrCodeServer, e.Code)
	assert.Equal(t, FaultServer, e.Fault)
	assert.Equal(t, "backend exploded", e.Message)
	assert.Equal(t, map[string]interface{}{"region": "eu-west-1"}, e.Details)
}

func TestStreamRunValidatesIDs(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k", BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = client.StreamRun(context.Background(), "", "run_1")
	assert.Error(t, err)
	_, err = client.StreamRun(context.Background(), "thread_1", "")
	assert.Error(t, err)
}
