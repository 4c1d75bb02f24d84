package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rendis/flowforge/internal/streaming"
	"github.com/rendis/flowforge/pkg/schema"
)

func (s *Server) handleRunDocument(w http.ResponseWriter, r *http.Request) {
	doc, _, err := decodeDocument(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	result, err := s.service.RunDocument(r.Context(), doc, nil)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := workflowID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	wf, err := s.store.GetWorkflow(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}

	var doc schema.WorkflowDocument
	if err := json.Unmarshal(wf.Config, &doc); err != nil {
		s.respondError(w, schema.NewErrorf(schema.ErrCodeValidation,
			"workflow %d has an invalid document: %s", id, err.Error()).WithCause(err))
		return
	}
	if doc.Name == "" {
		doc.Name = wf.Name
	}

	result, err := s.service.RunDocument(r.Context(), &doc, &id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.respondError(w, schema.NewErrorf(schema.ErrCodeValidation,
				"invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRunEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListRunEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleStreamingRun executes a posted document and streams one SSE
// frame per completed node, then a final frame with the run outcome.
// Client disconnect cancels the run cooperatively.
func (s *Server) handleStreamingRun(w http.ResponseWriter, r *http.Request) {
	doc, _, err := decodeDocument(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, schema.NewError(schema.ErrCodeExecution,
			"streaming is not supported by this connection"))
		return
	}

	stream, events, err := s.service.StreamDocument(r.Context(), doc, nil)
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeSSEHeaders(w)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			stream.Cancel()
			// Drain so the worker goroutine is not blocked on send.
			for range events {
			}
			return
		case event, open := <-events:
			if !open {
				result := stream.Result()
				s.writeSSE(w, flusher, streaming.EventTypeRunFinished, map[string]any{
					"runId":  result.RunID,
					"status": result.Status,
					"output": result.Output,
				})
				return
			}
			s.writeSSE(w, flusher, streaming.EventTypeNodeCompleted, event)
		}
	}
}

// handleEventStream subscribes the client to the hub over SSE,
// optionally filtered by runId and event type query parameters.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, schema.NewError(schema.ErrCodeExecution,
			"streaming is not supported by this connection"))
		return
	}

	filter := streaming.EventFilter{RunID: r.URL.Query().Get("runId")}
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		filter.EventTypes = []string{eventType}
	}

	events, cancel, err := s.hub.Subscribe(r.Context(), filter)
	if err != nil {
		s.respondError(w, err)
		return
	}
	defer cancel()

	writeSSEHeaders(w)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			s.writeSSE(w, flusher, event.EventType, event)
		}
	}
}

func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func (s *Server) writeSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal stream event", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	flusher.Flush()
}
