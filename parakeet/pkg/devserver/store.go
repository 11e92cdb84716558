package devserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parakeet-ai/parakeet-go/parakeet"
)

// simulate directives are read from run metadata so tests and demos can force
// specific outcomes: "failed" or "requires_action".
const simulateKey = "simulate"

type runRec struct {
	run            parakeet.Run
	createdAt      time.Time
	resumedAt      *time.Time
	cancelledAt    *time.Time
	simulateFail   bool
	requiresAction bool
	steps          []*parakeet.RunStep
}

type threadRec struct {
	thread   parakeet.Thread
	messages []parakeet.Message
	runs     []*runRec
	runsByID map[string]*runRec
}

// memoryStore holds all service state. Run lifecycles advance lazily: every
// access recomputes a run's status from wall-clock time, so no background
// goroutines are needed.
type memoryStore struct {
	mu        sync.Mutex
	stepEvery time.Duration
	threads   map[string]*threadRec
	now       func() time.Time
}

func newMemoryStore(stepEvery time.Duration) *memoryStore {
	return &memoryStore{
		stepEvery: stepEvery,
		threads:   map[string]*threadRec{},
		now:       time.Now,
	}
}

func newID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

func (s *memoryStore) createThread(req parakeet.CreateThreadRequest) parakeet.Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	thread := parakeet.Thread{
		ID:        newID("thread"),
		Object:    "thread",
		CreatedAt: now.Unix(),
		Metadata:  req.Metadata,
	}
	rec := &threadRec{thread: thread, runsByID: map[string]*runRec{}}
	for _, m := range req.Messages {
		rec.messages = append(rec.messages, s.buildMessage(thread.ID, "", m))
	}
	s.threads[thread.ID] = rec
	return thread
}

func (s *memoryStore) buildMessage(threadID, runID string, req parakeet.CreateMessageRequest) parakeet.Message {
	role := req.Role
	if role == "" {
		role = "user"
	}
	return parakeet.Message{
		ID:        newID("msg"),
		Object:    "thread.message",
		CreatedAt: s.now().Unix(),
		ThreadID:  threadID,
		Role:      role,
		RunID:     runID,
		Content:   []parakeet.MessageContent{{Type: "text", Text: req.Content}},
		Metadata:  req.Metadata,
	}
}

func (s *memoryStore) getThread(threadID string) (parakeet.Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.threads[threadID]
	if !ok {
		return parakeet.Thread{}, false
	}
	return rec.thread, true
}

func (s *memoryStore) deleteThread(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		return false
	}
	delete(s.threads, threadID)
	return true
}

func (s *memoryStore) addMessage(threadID string, req parakeet.CreateMessageRequest) (parakeet.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.threads[threadID]
	if !ok {
		return parakeet.Message{}, false
	}
	msg := s.buildMessage(threadID, "", req)
	rec.messages = append(rec.messages, msg)
	return msg, true
}

func (s *memoryStore) listMessages(threadID string) ([]parakeet.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	out := make([]parakeet.Message, len(rec.messages))
	copy(out, rec.messages)
	return out, true
}

func (s *memoryStore) createRun(threadID string, req parakeet.CreateRunRequest) (parakeet.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.threads[threadID]
	if !ok {
		return parakeet.Run{}, false
	}

	now := s.now()
	run := parakeet.Run{
		ID:           newID("run"),
		Object:       "thread.run",
		CreatedAt:    now.Unix(),
		ThreadID:     threadID,
		AssistantID:  req.AssistantID,
		Status:       parakeet.RunStatusQueued,
		Model:        req.Model,
		Instructions: req.Instructions,
		Metadata:     req.Metadata,
	}
	r := &runRec{
		run:            run,
		createdAt:      now,
		simulateFail:   req.Metadata[simulateKey] == "failed",
		requiresAction: req.Metadata[simulateKey] == "requires_action",
	}
	rec.runs = append(rec.runs, r)
	rec.runsByID[run.ID] = r
	return run, true
}

func (s *memoryStore) getRun(threadID, runID string) (parakeet.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.findRun(threadID, runID)
	if !ok {
		return parakeet.Run{}, false
	}
	s.advance(threadID, r)
	return r.run, true
}

func (s *memoryStore) listRuns(threadID string) ([]parakeet.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	out := make([]parakeet.Run, 0, len(rec.runs))
	for _, r := range rec.runs {
		s.advance(threadID, r)
		out = append(out, r.run)
	}
	return out, true
}

func (s *memoryStore) cancelRun(threadID, runID string) (parakeet.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.findRun(threadID, runID)
	if !ok {
		return parakeet.Run{}, false
	}
	s.advance(threadID, r)
	if !r.run.Status.Terminal() && r.cancelledAt == nil {
		now := s.now()
		r.cancelledAt = &now
		r.run.Status = parakeet.RunStatusCancelling
	}
	return r.run, true
}

func (s *memoryStore) submitToolOutputs(threadID, runID string, req parakeet.SubmitToolOutputsRequest) (parakeet.Run, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.findRun(threadID, runID)
	if !ok {
		return parakeet.Run{}, false, nil
	}
	s.advance(threadID, r)
	if r.run.Status != parakeet.RunStatusRequiresAction {
		return r.run, true, fmt.Errorf("run %s is %s, not requires_action", runID, r.run.Status)
	}

	// Attach outputs to the pending tool calls and resume.
	outputs := map[string]string{}
	for _, o := range req.ToolOutputs {
		outputs[o.ToolCallID] = o.Output
	}
	for _, step := range r.steps {
		if details, ok := step.Details.(*parakeet.ToolCallsDetails); ok {
			for i := range details.ToolCalls {
				if details.ToolCalls[i].Function == nil {
					continue
				}
				if out, ok := outputs[details.ToolCalls[i].ID]; ok {
					details.ToolCalls[i].Function.Output = out
				}
			}
			step.Status = parakeet.RunStatusCompleted
			completed := s.now().Unix()
			step.CompletedAt = &completed
		}
	}

	now := s.now()
	r.resumedAt = &now
	r.run.Status = parakeet.RunStatusInProgress
	r.run.RequiredAction = nil
	return r.run, true, nil
}

func (s *memoryStore) getStep(threadID, runID, stepID string) (*parakeet.RunStep, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.findRun(threadID, runID)
	if !ok {
		return nil, false
	}
	s.advance(threadID, r)
	for _, step := range r.steps {
		if step.ID == stepID {
			cp := *step
			return &cp, true
		}
	}
	return nil, false
}

func (s *memoryStore) listSteps(threadID, runID string) ([]parakeet.RunStep, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.findRun(threadID, runID)
	if !ok {
		return nil, false
	}
	s.advance(threadID, r)
	out := make([]parakeet.RunStep, 0, len(r.steps))
	for _, step := range r.steps {
		out = append(out, *step)
	}
	return out, true
}

func (s *memoryStore) findRun(threadID, runID string) (*runRec, bool) {
	rec, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	r, ok := rec.runsByID[runID]
	return r, ok
}

// advance recomputes a run's status from elapsed time. Must be called with
// the store lock held.
func (s *memoryStore) advance(threadID string, r *runRec) {
	if r.run.Status.Terminal() {
		return
	}

	now := s.now()

	if r.cancelledAt != nil {
		if now.Sub(*r.cancelledAt) >= s.stepEvery {
			r.run.Status = parakeet.RunStatusCancelled
			at := now.Unix()
			r.run.CancelledAt = &at
		}
		return
	}

	// Resumed runs finish one step after submit_tool_outputs.
	if r.resumedAt != nil {
		if now.Sub(*r.resumedAt) >= s.stepEvery {
			s.complete(threadID, r, now)
		}
		return
	}

	elapsed := now.Sub(r.createdAt)
	switch {
	case elapsed < s.stepEvery:
		r.run.Status = parakeet.RunStatusQueued
	case elapsed < 3*s.stepEvery:
		if r.run.Status == parakeet.RunStatusQueued {
			at := now.Unix()
			r.run.StartedAt = &at
		}
		r.run.Status = parakeet.RunStatusInProgress
	default:
		switch {
		case r.simulateFail:
			r.run.Status = parakeet.RunStatusFailed
			at := now.Unix()
			r.run.FailedAt = &at
			r.run.LastError = &parakeet.RunError{
				Code:    "server_error",
				Message: "simulated failure",
			}
		case r.requiresAction:
			s.park(r, now)
		default:
			s.complete(threadID, r, now)
		}
	}
}

// park moves a run into requires_action with one pending function call.
func (s *memoryStore) park(r *runRec, now time.Time) {
	call := parakeet.ToolCall{
		ID:   newID("call"),
		Type: "function",
		Function: &parakeet.FunctionCall{
			Name:      "lookup",
			Arguments: `{"query":"pending"}`,
		},
	}
	r.run.Status = parakeet.RunStatusRequiresAction
	r.run.RequiredAction = &parakeet.RequiredAction{
		Type: "submit_tool_outputs",
		SubmitToolOutputs: &parakeet.SubmitToolOutputsAction{
			ToolCalls: []parakeet.ToolCall{call},
		},
	}
	r.steps = append(r.steps, &parakeet.RunStep{
		ID:        newID("step"),
		Object:    "thread.run.step",
		CreatedAt: now.Unix(),
		RunID:     r.run.ID,
		ThreadID:  r.run.ThreadID,
		Type:      "tool_calls",
		Status:    parakeet.RunStatusInProgress,
		Details:   &parakeet.ToolCallsDetails{ToolCalls: []parakeet.ToolCall{call}},
	})
}

// complete finishes a run: an assistant message plus its creation step.
func (s *memoryStore) complete(threadID string, r *runRec, now time.Time) {
	rec := s.threads[threadID]
	msg := s.buildMessage(threadID, r.run.ID, parakeet.CreateMessageRequest{
		Role:    "assistant",
		Content: "All done.",
	})
	if rec != nil {
		rec.messages = append(rec.messages, msg)
	}

	at := now.Unix()
	r.run.Status = parakeet.RunStatusCompleted
	r.run.CompletedAt = &at
	r.steps = append(r.steps, &parakeet.RunStep{
		ID:          newID("step"),
		Object:      "thread.run.step",
		CreatedAt:   now.Unix(),
		RunID:       r.run.ID,
		ThreadID:    threadID,
		Type:        "message_creation",
		Status:      parakeet.RunStatusCompleted,
		CompletedAt: &at,
		Details:     &parakeet.MessageCreationDetails{MessageID: msg.ID},
	})
}
