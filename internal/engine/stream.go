package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowforge/internal/graph"
	"github.com/rendis/flowforge/internal/logging"
	"github.com/rendis/flowforge/pkg/schema"
)

// defaultStreamBuffer bounds the event channel between the worker and
// the consumer. The producer blocks when the consumer falls behind.
const defaultStreamBuffer = 64

// Stream is a handle on an in-flight streaming run. Exactly one worker
// goroutine produces events; the caller is the single consumer. The
// events channel closing is the end-of-run sentinel, sent exactly once
// on both the completion and cancellation paths.
type Stream struct {
	RunID string

	events    chan schema.NodeEvent
	cancelled atomic.Bool
	done      chan struct{}
	result    *RunResult
}

// Events returns the channel of per-node completion events. It is
// closed when the run ends.
func (s *Stream) Events() <-chan schema.NodeEvent {
	return s.events
}

// Cancel requests cooperative cancellation. The flag is checked before
// each dequeue, so a node already executing runs to completion and its
// event is still delivered.
func (s *Stream) Cancel() {
	s.cancelled.Store(true)
}

// Result blocks until the run ends and returns its outcome.
func (s *Stream) Result() *RunResult {
	<-s.done
	return s.result
}

// Stream executes the graph on a dedicated worker goroutine and returns
// immediately. The caller drains Events until it closes, then may read
// Result.
func (r *Runner) Stream(ctx context.Context, g *graph.Graph) *Stream {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	s := &Stream{
		RunID:  runID,
		events: make(chan schema.NodeEvent, defaultStreamBuffer),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.events)
		defer close(s.done)

		result := &RunResult{
			RunID:     runID,
			Status:    schema.RunStatusRunning,
			StartedAt: time.Now(),
		}

		ec := graph.NewExecContext(g.ContextData())
		status := r.traverse(ctx, g, ec, s.cancelled.Load, func(event schema.NodeEvent) {
			s.events <- event
		})

		result.Status = status
		result.History = ec.History()
		result.Output = ec.CurrentData
		result.CompletedAt = time.Now()
		s.result = result

		r.logger.InfoContext(ctx, "streaming run finished",
			"status", string(status), "nodes_executed", ec.Len())
	}()

	return s
}
