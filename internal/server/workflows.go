package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rendis/flowforge/internal/store"
	"github.com/rendis/flowforge/pkg/schema"
)

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	doc, raw, err := decodeDocument(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	wf := &store.Workflow{Name: doc.Name, Config: raw}
	id, err := s.store.CreateWorkflow(r.Context(), wf)
	if err != nil {
		s.respondError(w, err)
		return
	}
	wf.ID = id
	s.respondJSON(w, http.StatusCreated, wf)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.store.ListWorkflows(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
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
	s.respondJSON(w, http.StatusOK, wf)
}

func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := workflowID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	doc, raw, err := decodeDocument(r)
	if err != nil {
		s.respondError(w, err)
		return
	}

	wf := &store.Workflow{ID: id, Name: doc.Name, Config: raw}
	if err := s.store.UpdateWorkflow(r.Context(), wf); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, wf)
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := workflowID(r)
	if err != nil {
		s.respondError(w, err)
		return
	}
	if err := s.store.DeleteWorkflow(r.Context(), id); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleSearchWorkflows(w http.ResponseWriter, r *http.Request) {
	nodeType := chi.URLParam(r, "nodeType")
	if _, ok := schema.ValidNodeTypes[schema.NodeType(nodeType)]; !ok {
		s.respondError(w, schema.NewErrorf(schema.ErrCodeValidation,
			"unknown node type %q", nodeType))
		return
	}
	workflows, err := s.store.SearchWorkflowsByNodeType(r.Context(), nodeType)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

func workflowID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, schema.NewErrorf(schema.ErrCodeValidation,
			"invalid workflow id %q", raw)
	}
	return id, nil
}
