package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rendis/flowforge/internal/scheduler"
	"github.com/rendis/flowforge/internal/store"
	"github.com/rendis/flowforge/pkg/schema"
)

type createScheduleRequest struct {
	WorkflowID int64  `json:"workflowId"`
	CronExpr   string `json:"cronExpr"`
	Enabled    *bool  `json:"enabled,omitempty"`
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	var req createScheduleRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.respondError(w, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid schedule request: %s", err.Error()).WithCause(err))
		return
	}
	if err := scheduler.ValidateCronExpr(req.CronExpr); err != nil {
		s.respondError(w, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err))
		return
	}

	// The workflow must exist before a job can point at it.
	if _, err := s.store.GetWorkflow(r.Context(), req.WorkflowID); err != nil {
		s.respondError(w, err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	job := &store.ScheduledJob{
		ID:         uuid.NewString(),
		WorkflowID: req.WorkflowID,
		CronExpr:   req.CronExpr,
		Enabled:    enabled,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateScheduledJob(r.Context(), job); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, job)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListScheduledJobs(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"schedules": jobs})
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteScheduledJob(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
