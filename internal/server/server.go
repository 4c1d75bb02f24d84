// Package server exposes the workflow engine over HTTP: document CRUD,
// synchronous and streaming runs, run history, and schedule management.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rendis/flowforge/internal/scheduler"
	"github.com/rendis/flowforge/internal/store"
	"github.com/rendis/flowforge/internal/streaming"
	"github.com/rendis/flowforge/pkg/schema"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	store     store.Store
	service   *RunService
	hub       streaming.EventHub
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// New builds a server over the given service and store. The scheduler
// is optional; when nil the schedule endpoints still manage jobs but
// nothing fires them.
func New(st store.Store, service *RunService, hub streaming.EventHub, sched *scheduler.Scheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:     st,
		service:   service,
		hub:       hub,
		scheduler: sched,
		logger:    logger,
	}
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", s.handleCreateWorkflow)
			r.Get("/", s.handleListWorkflows)
			r.Get("/search/by_node_type/{nodeType}", s.handleSearchWorkflows)
			r.Post("/run", s.handleRunDocument)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetWorkflow)
				r.Put("/", s.handleUpdateWorkflow)
				r.Delete("/", s.handleDeleteWorkflow)
				r.Post("/run", s.handleRunWorkflow)
			})
		})
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Get("/{id}/events", s.handleListRunEvents)
		})
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", s.handleCreateSchedule)
			r.Get("/", s.handleListSchedules)
			r.Delete("/{id}", s.handleDeleteSchedule)
		})
		r.Get("/events/stream", s.handleEventStream)
	})

	r.Post("/workflow/runtime", s.handleStreamingRun)
	r.Get("/healthz", s.handleHealth)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	var fe *schema.FlowError
	if !errors.As(err, &fe) {
		fe = schema.NewError(schema.ErrCodeExecution, err.Error())
	}
	s.respondJSON(w, statusForCode(fe.Code), map[string]any{"error": fe})
}

func statusForCode(code string) int {
	switch code {
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	case schema.ErrCodeConflict:
		return http.StatusConflict
	case schema.ErrCodeValidation, schema.ErrCodeSyntax, schema.ErrCodeGraph,
		schema.ErrCodeUnboundVariable, schema.ErrCodeTypeMismatch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeDocument reads and validates a workflow document from the
// request body.
func decodeDocument(r *http.Request) (*schema.WorkflowDocument, []byte, error) {
	raw, err := readBody(r)
	if err != nil {
		return nil, nil, err
	}
	if err := schema.ValidateDocumentJSON(raw); err != nil {
		return nil, nil, err
	}
	var doc schema.WorkflowDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid workflow document: %s", err.Error()).WithCause(err)
	}
	return &doc, raw, nil
}

const maxBodyBytes = 4 << 20

func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"failed to read request body: %s", err.Error()).WithCause(err)
	}
	if len(raw) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "request body is empty")
	}
	return raw, nil
}
