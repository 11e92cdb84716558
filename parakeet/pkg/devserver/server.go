// Package devserver runs an in-memory Parakeet service for local development
// and tests. Runs advance queued -> in_progress -> terminal on a configurable
// clock, so polling, waiting and streaming all behave like the hosted
// service.
package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parakeet-ai/parakeet-go/parakeet"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/logging"
)

const (
	defaultStepEvery = 500 * time.Millisecond
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Options configures a dev server.
type Options struct {
	Host string
	Port int
	// APIKey, when set, requires a matching bearer token on every request.
	APIKey string
	// StepEvery is how long each run lifecycle phase lasts. Default 500ms.
	StepEvery time.Duration
	// MetricsHandler overrides the /metrics handler; defaults to the
	// process-wide Prometheus registry.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// Server is a local in-memory Parakeet service.
type Server struct {
	host     string
	port     int
	apiKey   string
	store    *memoryStore
	server   *http.Server
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a dev server. It does not start listening until Start.
func New(opts Options) *Server {
	if opts.Host == "" {
		opts.Host = constants.DefaultLocalHost
	}
	if opts.Port == 0 {
		opts.Port = constants.DefaultPortStart
	}
	if opts.StepEvery <= 0 {
		opts.StepEvery = defaultStepEvery
	}
	if opts.Logger == nil {
		opts.Logger = logging.L()
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = promhttp.Handler()
	}

	s := &Server{
		host:   opts.Host,
		port:   opts.Port,
		apiKey: opts.APIKey,
		store:  newMemoryStore(opts.StepEvery),
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: s.Router(opts.MetricsHandler),
	}

	return s
}

// Router builds the HTTP routes. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Router(metricsHandler http.Handler) *mux.Router {
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.Handle("/metrics", metricsHandler).Methods("GET")

	api := router.PathPrefix(constants.DefaultAPIPrefix).Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/threads", s.handleCreateThread).Methods("POST")
	api.HandleFunc("/threads/runs", s.handleCreateThreadAndRun).Methods("POST")
	api.HandleFunc("/threads/{threadID}", s.handleGetThread).Methods("GET")
	api.HandleFunc("/threads/{threadID}", s.handleDeleteThread).Methods("DELETE")
	api.HandleFunc("/threads/{threadID}/messages", s.handleCreateMessage).Methods("POST")
	api.HandleFunc("/threads/{threadID}/messages", s.handleListMessages).Methods("GET")
	api.HandleFunc("/threads/{threadID}/runs", s.handleCreateRun).Methods("POST")
	api.HandleFunc("/threads/{threadID}/runs", s.handleListRuns).Methods("GET")
	api.HandleFunc("/threads/{threadID}/runs/{runID}", s.handleGetRun).Methods("GET")
	api.HandleFunc("/threads/{threadID}/runs/{runID}/cancel", s.handleCancelRun).Methods("POST")
	api.HandleFunc("/threads/{threadID}/runs/{runID}/submit_tool_outputs", s.handleSubmitToolOutputs).Methods("POST")
	api.HandleFunc("/threads/{threadID}/runs/{runID}/steps", s.handleListSteps).Methods("GET")
	api.HandleFunc("/threads/{threadID}/runs/{runID}/steps/{stepID}", s.handleGetStep).Methods("GET")
	api.HandleFunc("/threads/{threadID}/runs/{runID}/events", s.handleRunEvents).Methods("GET")

	return router
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting parakeet dev server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dev server")
	return s.server.Shutdown(ctx)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.server.Addr
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token != s.apiKey {
				writeError(w, http.StatusUnauthorized, parakeet.ErrCodeAuthentication, "invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	var req parakeet.CreateThreadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	thread := s.store.createThread(req)
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleCreateThreadAndRun(w http.ResponseWriter, r *http.Request) {
	var req parakeet.CreateThreadAndRunRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AssistantID == "" {
		writeError(w, http.StatusBadRequest, parakeet.ErrCodeInvalidRequest, "assistant_id is required")
		return
	}

	var threadReq parakeet.CreateThreadRequest
	if req.Thread != nil {
		threadReq = *req.Thread
	}
	thread := s.store.createThread(threadReq)

	run, _ := s.store.createRun(thread.ID, parakeet.CreateRunRequest{
		AssistantID:  req.AssistantID,
		Model:        req.Model,
		Instructions: req.Instructions,
		Metadata:     req.Metadata,
	})
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, ok := s.store.getThread(mux.Vars(r)["threadID"])
	if !ok {
		writeNotFound(w, "thread")
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]
	if !s.store.deleteThread(threadID) {
		writeNotFound(w, "thread")
		return
	}
	writeJSON(w, http.StatusOK, parakeet.DeletionStatus{
		ID:      threadID,
		Object:  "thread.deleted",
		Deleted: true,
	})
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req parakeet.CreateMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg, ok := s.store.addMessage(mux.Vars(r)["threadID"], req)
	if !ok {
		writeNotFound(w, "thread")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, ok := s.store.listMessages(mux.Vars(r)["threadID"])
	if !ok {
		writeNotFound(w, "thread")
		return
	}
	writeList(w, r, msgs, func(m parakeet.Message) string { return m.ID })
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req parakeet.CreateRunRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AssistantID == "" {
		writeError(w, http.StatusBadRequest, parakeet.ErrCodeInvalidRequest, "assistant_id is required")
		return
	}
	run, ok := s.store.createRun(mux.Vars(r)["threadID"], req)
	if !ok {
		writeNotFound(w, "thread")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, ok := s.store.listRuns(mux.Vars(r)["threadID"])
	if !ok {
		writeNotFound(w, "thread")
		return
	}
	writeList(w, r, runs, func(run parakeet.Run) string { return run.ID })
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	run, ok := s.store.getRun(vars["threadID"], vars["runID"])
	if !ok {
		writeNotFound(w, "run")
		return
	}
	if !run.Status.Terminal() {
		ms := s.store.stepEvery.Milliseconds()
		if ms < 1 {
			ms = 1
		}
		w.Header().Set(constants.PollAfterHeader, strconv.FormatInt(ms, 10))
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	run, ok := s.store.cancelRun(vars["threadID"], vars["runID"])
	if !ok {
		writeNotFound(w, "run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleSubmitToolOutputs(w http.ResponseWriter, r *http.Request) {
	var req parakeet.SubmitToolOutputsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	run, ok, err := s.store.submitToolOutputs(vars["threadID"], vars["runID"], req)
	if !ok {
		writeNotFound(w, "run")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, parakeet.ErrCodeConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	steps, ok := s.store.listSteps(vars["threadID"], vars["runID"])
	if !ok {
		writeNotFound(w, "run")
		return
	}
	writeList(w, r, steps, func(step parakeet.RunStep) string { return step.ID })
}

func (s *Server) handleGetStep(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	step, ok := s.store.getStep(vars["threadID"], vars["runID"], vars["stepID"])
	if !ok {
		writeNotFound(w, "run step")
		return
	}
	writeJSON(w, http.StatusOK, step)
}

// handleRunEvents pushes status, delta and done frames over WebSocket until
// the run settles.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	threadID, runID := vars["threadID"], vars["runID"]

	if _, ok := s.store.getRun(threadID, runID); !ok {
		writeNotFound(w, "run")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// The client sends a subscribe frame first; drain it but tolerate its
	// absence.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, _ = conn.ReadMessage()
	conn.SetReadDeadline(time.Time{})

	tick := s.store.stepEvery / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var lastStatus parakeet.RunStatus
	chunks := []string{"All ", "done."}
	sent := 0

	for range ticker.C {
		run, ok := s.store.getRun(threadID, runID)
		if !ok {
			return
		}

		if run.Status != lastStatus {
			lastStatus = run.Status
			if run.Status.Terminal() {
				s.writeFrame(conn, eventFrame{Type: "done", Status: run.Status, Run: &run})
				return
			}
			if !s.writeFrame(conn, eventFrame{Type: "status", Status: run.Status}) {
				return
			}
		}

		if run.Status == parakeet.RunStatusInProgress && sent < len(chunks) {
			delta, _ := json.Marshal(map[string]string{"text": chunks[sent]})
			sent++
			if !s.writeFrame(conn, eventFrame{Type: "delta", Delta: delta}) {
				return
			}
		}
	}
}

type eventFrame struct {
	Type   string             `json:"type"`
	Status parakeet.RunStatus `json:"status,omitempty"`
	Delta  json.RawMessage    `json:"delta,omitempty"`
	Run    *parakeet.Run      `json:"run,omitempty"`
}

func (s *Server) writeFrame(conn *websocket.Conn, frame eventFrame) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("event stream write failed", "error", err)
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, parakeet.ErrCodeInvalidRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeNotFound(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotFound, parakeet.ErrCodeNotFound, fmt.Sprintf("no such %s", what))
}

func writeError(w http.ResponseWriter, status int, code parakeet.ErrorCode, message string) {
	fault := parakeet.FaultClient
	if status >= 500 {
		fault = parakeet.FaultServer
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
			"fault":   fault,
		},
	})
}

// writeList applies cursor pagination to items (stored in creation order) and
// writes the list envelope.
func writeList[T any](w http.ResponseWriter, r *http.Request, items []T, id func(T) string) {
	q := r.URL.Query()

	limit := defaultPageLimit
	if rawLimit := q.Get("limit"); rawLimit != "" {
		if n, err := strconv.Atoi(rawLimit); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if q.Get("order") == "desc" {
		reversed := make([]T, len(items))
		for i, item := range items {
			reversed[len(items)-1-i] = item
		}
		items = reversed
	}

	if after := q.Get("after"); after != "" {
		start := len(items)
		for i, item := range items {
			if id(item) == after {
				start = i + 1
				break
			}
		}
		items = items[start:]
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	envelope := map[string]interface{}{
		"object":   "list",
		"data":     items,
		"first_id": "",
		"last_id":  "",
		"has_more": hasMore,
	}
	if len(items) > 0 {
		envelope["first_id"] = id(items[0])
		envelope["last_id"] = id(items[len(items)-1])
	}
	if items == nil {
		envelope["data"] = []T{}
	}

	writeJSON(w, http.StatusOK, envelope)
}
