package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rendis/flowforge/internal/engine"
	"github.com/rendis/flowforge/internal/expressions"
	"github.com/rendis/flowforge/internal/graph"
	"github.com/rendis/flowforge/internal/store"
	"github.com/rendis/flowforge/internal/streaming"
	"github.com/rendis/flowforge/pkg/schema"
)

// RunService orchestrates workflow execution: it builds graphs from
// documents, runs them, persists outcomes, and publishes events to the
// hub. It also satisfies scheduler.WorkflowRunner.
type RunService struct {
	store   store.Store
	runner  *engine.Runner
	hub     streaming.EventHub
	engines *expressions.Registry
	llm     *graph.LLMClient
	logger  *slog.Logger
}

// NewRunService wires a run service from its dependencies.
func NewRunService(st store.Store, runner *engine.Runner, hub streaming.EventHub, llm *graph.LLMClient, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		store:   st,
		runner:  runner,
		hub:     hub,
		engines: expressions.NewRegistry(),
		llm:     llm,
		logger:  logger,
	}
}

// BuildGraph parses a document into a live graph with the service's
// shared engines and LLM client.
func (s *RunService) BuildGraph(doc *schema.WorkflowDocument) (*graph.Graph, error) {
	return graph.New(doc, graph.Options{Engines: s.engines, LLM: s.llm})
}

// RunDocument executes a document synchronously, persists the run and
// its events, and returns the result.
func (s *RunService) RunDocument(ctx context.Context, doc *schema.WorkflowDocument, workflowID *int64) (*engine.RunResult, error) {
	g, err := s.BuildGraph(doc)
	if err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, g)
	if err != nil {
		return nil, err
	}

	s.persistRun(ctx, result, doc.Name, workflowID)
	for _, entry := range result.History {
		event := schema.NodeEvent{
			NodeID:    entry.NodeID,
			IsSuccess: entry.Status != schema.NodeStatusFailed,
			Input:     entry.Input,
			Output:    entry.Output,
		}
		if entry.Status == schema.NodeStatusFailed {
			if out, ok := entry.Output.(map[string]any); ok {
				if msg, ok := out["error"].(string); ok {
					event.Error = msg
				}
			}
		}
		s.recordEvent(ctx, result.RunID, event)
	}
	s.publishFinished(ctx, result)
	return result, nil
}

// StreamDocument starts a streaming run and returns its handle. Events
// are forwarded to the hub and persisted as they arrive; the returned
// stream is the caller's own consumption channel.
func (s *RunService) StreamDocument(ctx context.Context, doc *schema.WorkflowDocument, workflowID *int64) (*engine.Stream, <-chan schema.NodeEvent, error) {
	g, err := s.BuildGraph(doc)
	if err != nil {
		return nil, nil, err
	}

	// Detach persistence from the request context so a client
	// disconnect cannot lose the run record.
	persistCtx := context.WithoutCancel(ctx)

	stream := s.runner.Stream(ctx, g)
	out := make(chan schema.NodeEvent, 1)

	go func() {
		defer close(out)
		for event := range stream.Events() {
			s.recordEvent(persistCtx, stream.RunID, event)
			out <- event
		}
		result := stream.Result()
		s.persistRun(persistCtx, result, doc.Name, workflowID)
		s.publishFinished(persistCtx, result)
	}()

	return stream, out, nil
}

// RunStored loads a stored workflow and runs it synchronously. Used by
// the scheduler.
func (s *RunService) RunStored(ctx context.Context, workflowID int64) error {
	wf, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}

	var doc schema.WorkflowDocument
	if err := json.Unmarshal(wf.Config, &doc); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"workflow %d has an invalid document: %s", workflowID, err.Error()).WithCause(err)
	}
	if doc.Name == "" {
		doc.Name = wf.Name
	}

	_, err = s.RunDocument(ctx, &doc, &workflowID)
	return err
}

func (s *RunService) persistRun(ctx context.Context, result *engine.RunResult, name string, workflowID *int64) {
	output, err := json.Marshal(result.Output)
	if err != nil {
		output = nil
	}
	history, err := json.Marshal(result.History)
	if err != nil {
		history = nil
	}

	completed := result.CompletedAt
	record := &store.Run{
		ID:           result.RunID,
		WorkflowID:   workflowID,
		WorkflowName: name,
		Status:       result.Status,
		Output:       output,
		History:      history,
		StartedAt:    result.StartedAt,
		CompletedAt:  &completed,
	}
	if err := s.store.SaveRun(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist run",
			slog.String("run_id", result.RunID), slog.String("error", err.Error()))
	}
}

func (s *RunService) recordEvent(ctx context.Context, runID string, event schema.NodeEvent) {
	if err := s.store.AppendRunEvent(ctx, runID, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist run event",
			slog.String("run_id", runID), slog.String("error", err.Error()))
	}
	_ = s.hub.Publish(ctx, streaming.RunEvent{
		RunID:     runID,
		EventType: streaming.EventTypeNodeCompleted,
		Node:      &event,
	})
}

func (s *RunService) publishFinished(ctx context.Context, result *engine.RunResult) {
	_ = s.hub.Publish(ctx, streaming.RunEvent{
		RunID:     result.RunID,
		EventType: streaming.EventTypeRunFinished,
		Status:    result.Status,
	})
}
