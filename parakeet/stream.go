package parakeet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// RunEventType identifies a frame on a run event stream.
type RunEventType string

const (
	RunEventStatus RunEventType = "status"
	RunEventDelta  RunEventType = "delta"
	RunEventDone   RunEventType = "done"
	RunEventError  RunEventType = "error"
)

// RunEvent is one event observed while a run executes.
type RunEvent struct {
	Type   RunEventType
	Status RunStatus
	// Delta carries incremental output for delta events.
	Delta json.RawMessage
	// Run is the final run object on done events.
	Run *Run
}

type eventFrame struct {
	Type   string           `json:"type"`
	Status RunStatus        `json:"status,omitempty"`
	Delta  json.RawMessage  `json:"delta,omitempty"`
	Run    *Run             `json:"run,omitempty"`
	Error  *apiErrorPayload `json:"error,omitempty"`
}

type subscribeFrame struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
}

// StreamRun subscribes to a run's event stream over WebSocket. The iterator
// yields events until the service sends a done frame or an error.
func (c *Client) StreamRun(ctx context.Context, threadID, runID string) (*StreamIterator, error) {
	if threadID == "" || runID == "" {
		return nil, newError(ErrCodeInvalidRequest, "thread_id and run_id are required")
	}

	endpoint := fmt.Sprintf("%s/threads/%s/runs/%s/events", c.baseSocketURL, threadID, runID)

	dialer := websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
	}
	headers := http.Header{
		"User-Agent":    []string{userAgent()},
		"Authorization": []string{"Bearer " + c.apiKey},
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		return nil, newError(
			ErrCodeConnection,
			"failed to open WebSocket connection",
			withCause(err),
		)
	}

	sub := subscribeFrame{Type: "subscribe", RunID: runID}
	data, _ := json.Marshal(sub)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return nil, newError(ErrCodeConnection, "failed to send subscribe frame", withCause(err))
	}

	return newStreamIterator(conn), nil
}

// StreamIterator provides a blocking iterator over run events.
type StreamIterator struct {
	conn   *websocket.Conn
	closed bool
}

func newStreamIterator(conn *websocket.Conn) *StreamIterator {
	return &StreamIterator{conn: conn}
}

// Next blocks until the next event is available. more is false once the
// stream has ended; the done event itself is delivered with more false so
// callers see the final run.
func (s *StreamIterator) Next(ctx context.Context) (ev *RunEvent, more bool, err error) {
	if s.closed {
		return nil, false, nil
	}

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return nil, false, ctx.Err()
		default:
		}

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.Close()
			return nil, false, newError(
				ErrCodeConnection,
				"failed to read stream message",
				withCause(err),
			)
		}

		var frame eventFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			s.Close()
			return nil, false, newError(ErrCodeServer, "invalid stream message",
				withFault(FaultServer), withCause(err))
		}

		if frame.Error != nil {
			s.Close()
			fault := frame.Error.Fault
			if fault == "" {
				fault = FaultServer
			}
			return nil, false, newError(
				frame.Error.Code,
				frame.Error.Message,
				withFault(fault),
				withSuggestion(frame.Error.Suggestion),
				withDetails(frame.Error.Details),
			)
		}

		switch RunEventType(frame.Type) {
		case RunEventStatus:
			return &RunEvent{Type: RunEventStatus, Status: frame.Status}, true, nil
		case RunEventDelta:
			return &RunEvent{Type: RunEventDelta, Delta: frame.Delta}, true, nil
		case RunEventDone:
			s.Close()
			ev := &RunEvent{Type: RunEventDone, Run: frame.Run}
			if frame.Run != nil {
				ev.Status = frame.Run.Status
			}
			return ev, false, nil
		default:
			// Skip frame types added after this SDK version shipped.
			continue
		}
	}
}

// Close terminates the underlying WebSocket connection.
func (s *StreamIterator) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
