// Package engine traverses live workflow graphs. The traversal is a
// breadth-first walk: each node runs at most once per run, failures are
// isolated to their branch, and a streaming variant pushes per-node
// events to a consumer with cooperative cancellation.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowforge/internal/graph"
	"github.com/rendis/flowforge/internal/logging"
	"github.com/rendis/flowforge/pkg/schema"
)

// Runner executes workflow graphs. A single Runner is shared across
// runs, all per-run state lives in the ExecContext it creates.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger falls back to slog.Default.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// RunResult is the outcome of one run.
type RunResult struct {
	RunID       string               `json:"runId"`
	Status      schema.RunStatus     `json:"status"`
	History     []graph.HistoryEntry `json:"history"`
	Output      any                  `json:"output"`
	StartedAt   time.Time            `json:"startedAt"`
	CompletedAt time.Time            `json:"completedAt"`
}

// queueItem pairs a node with the input value it will receive.
type queueItem struct {
	node  *graph.Node
	input any
}

// Run executes the graph to completion and returns the collected
// history. Per-node failures are recorded and isolate their branch, the
// run itself only fails on a cancelled context.
func (r *Runner) Run(ctx context.Context, g *graph.Graph) (*RunResult, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	result := &RunResult{
		RunID:     runID,
		Status:    schema.RunStatusRunning,
		StartedAt: time.Now(),
	}

	ec := graph.NewExecContext(g.ContextData())
	status := r.traverse(ctx, g, ec, nil, nil)

	result.Status = status
	result.History = ec.History()
	result.Output = ec.CurrentData
	result.CompletedAt = time.Now()

	r.logger.InfoContext(ctx, "run finished",
		slog.String("status", string(status)),
		slog.Int("nodes_executed", ec.Len()))
	return result, nil
}

// traverse is the BFS loop shared by Run and Stream. cancelled is
// polled before each dequeue; onComplete fires synchronously after each
// node finishes. Both may be nil.
func (r *Runner) traverse(
	ctx context.Context,
	g *graph.Graph,
	ec *graph.ExecContext,
	cancelled func() bool,
	onComplete func(schema.NodeEvent),
) schema.RunStatus {
	queue := []queueItem{{node: g.Start(), input: nil}}
	visited := map[string]bool{g.Start().ID: true}

	for len(queue) > 0 {
		if ctx.Err() != nil || (cancelled != nil && cancelled()) {
			return schema.RunStatusCancelled
		}

		item := queue[0]
		queue = queue[1:]

		nodeCtx := logging.WithNodeID(ctx, item.node.ID)
		next, err := item.node.Execute(nodeCtx, ec, item.input)
		if err != nil {
			// The node already recorded a failed entry. Halt this branch
			// only, siblings in the queue keep going.
			r.logger.WarnContext(nodeCtx, "node failed",
				slog.String("variant", string(item.node.Variant)),
				slog.String("error", err.Error()))
			next = nil
		} else {
			r.logger.DebugContext(nodeCtx, "node completed",
				slog.String("variant", string(item.node.Variant)))
		}

		if onComplete != nil {
			onComplete(nodeEvent(ec, item.node.ID, item.input, err))
		}

		for _, successor := range next {
			if successor == nil || visited[successor.ID] {
				continue
			}
			visited[successor.ID] = true
			queue = append(queue, queueItem{node: successor, input: ec.CurrentData})
		}
	}
	return schema.RunStatusCompleted
}

// nodeEvent builds the streaming event for a finished node from its
// history record.
func nodeEvent(ec *graph.ExecContext, nodeID string, input any, err error) schema.NodeEvent {
	event := schema.NodeEvent{
		NodeID:    nodeID,
		IsSuccess: err == nil,
		Input:     input,
	}
	if entry, ok := ec.NodeHistory(nodeID); ok {
		event.Output = entry.Output
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}
