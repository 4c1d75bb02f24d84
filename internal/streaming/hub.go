// Package streaming fans out per-node run events to live observers.
package streaming

import (
	"context"

	"github.com/rendis/flowforge/pkg/schema"
)

// RunEvent is one observable step of a run: a node-completion event
// tagged with its run, or the run's terminal status change.
type RunEvent struct {
	RunID     string            `json:"runId"`
	EventType string            `json:"eventType"`
	Node      *schema.NodeEvent `json:"node,omitempty"`
	Status    schema.RunStatus  `json:"status,omitempty"`
}

// Event types carried by RunEvent.
const (
	EventTypeNodeCompleted = "node_completed"
	EventTypeRunFinished   = "run_finished"
)

// EventFilter restricts a subscription to one run or event type subset.
type EventFilter struct {
	RunID      string   `json:"runId,omitempty"`
	EventTypes []string `json:"eventTypes,omitempty"`
}

// EventHub provides pub/sub for live run events.
type EventHub interface {
	Publish(ctx context.Context, event RunEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan RunEvent, func(), error)
}
