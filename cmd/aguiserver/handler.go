package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	aguievents "github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"

	"github.com/spetersoncode/relay/agui"
)

// AgentHandler runs one turn per POST on the thread's agent and streams
// the AG-UI events back as Server-Sent Events.
type AgentHandler struct {
	threads *agui.Threads
	logger  *slog.Logger
	timeout time.Duration
}

// NewAgentHandler serves threads. A positive timeout bounds each turn.
func NewAgentHandler(threads *agui.Threads, logger *slog.Logger, timeout time.Duration) *AgentHandler {
	return &AgentHandler{threads: threads, logger: logger, timeout: timeout}
}

func (h *AgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	run, status, err := h.readRun(r)
	if err != nil {
		h.logger.Warn("rejected run", "status", status, "error", err)
		http.Error(w, err.Error(), status)
		return
	}
	log := h.logger.With("thread_id", run.ThreadID, "run_id", run.RunID)

	sse, ok := newSSE(w)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	a, err := h.threads.Get(run.ThreadID)
	if err != nil {
		log.Error("creating agent", "error", err)
		http.Error(w, "could not create agent", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	if h.timeout > 0 {
		ctx, cancel = context.WithTimeout(r.Context(), h.timeout)
	}
	defer cancel()

	start := time.Now()
	log.Info("run started", "input_chars", len(run.Input))

	events := agui.NewMapper(run.ThreadID, run.RunID).MapStream(a.RunStream(ctx, run.Input))
	sent := 0
	for ev := range events {
		if err := sse.send(ev); err != nil {
			log.Warn("client went away", "events_sent", sent, "error", err)
			cancel()
			for range events {
			}
			return
		}
		sent++
		log.Debug("sent event", "type", ev.Type())
	}
	log.Info("run finished", "events_sent", sent, "duration", time.Since(start))
}

// readRun decodes and checks a run request, returning the HTTP status to
// answer with when it is unusable.
func (h *AgentHandler) readRun(r *http.Request) (*agui.PreparedInput, int, error) {
	var input agui.RunAgentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)
	}
	run, err := input.Prepare()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return run, http.StatusOK, nil
}

// sse writes AG-UI events as "event:"/"data:" frames, flushing each one.
type sse struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSE(w http.ResponseWriter) (*sse, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return &sse{w: w, f: f}, true
}

func (s *sse) send(ev aguievents.Event) error {
	data, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", ev.Type(), err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type(), data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// MessagesHandler answers GET /api/threads/{threadID}/messages with a
// MESSAGES_SNAPSHOT of the thread's history, or 404 for unknown threads.
func MessagesHandler(threads *agui.Threads) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := threads.Lookup(r.PathValue("threadID"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		data, err := agui.Snapshot(a.Conversation().Messages()).ToJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

// corsMiddleware lets browser frontends on other origins call the API.
// Preflight requests are answered here.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
