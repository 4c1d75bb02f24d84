package graph

import (
	"time"
)

// HistoryEntry is one node's execution record. Entries are written once
// and never mutated afterwards.
type HistoryEntry struct {
	NodeID    string    `json:"nodeId"`
	Status    string    `json:"status"`
	Input     any       `json:"input"`
	Output    any       `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecContext is the mutable state of a single run. It is exclusively
// owned by one traversal loop: the engine serializes all access, so no
// locking happens here. It must never be shared across runs.
type ExecContext struct {
	history map[string]HistoryEntry
	order   []string

	// ContextData holds the workflow document's static vars and secrets,
	// GlobalData is the run-scoped key/value store nodes read and write.
	ContextData map[string]any
	GlobalData  map[string]any

	// CurrentData is the most recent value produced by any node, threaded
	// to the next dequeued node as its input.
	CurrentData any
}

// NewExecContext creates a fresh run context seeded with the workflow's
// static context data.
func NewExecContext(contextData map[string]any) *ExecContext {
	if contextData == nil {
		contextData = map[string]any{}
	}
	return &ExecContext{
		history:     make(map[string]HistoryEntry),
		ContextData: contextData,
		GlobalData:  make(map[string]any),
	}
}

// Record writes a node's execution record. Insertion order is preserved
// so History reflects actual execution order.
func (c *ExecContext) Record(nodeID, status string, input, output any) {
	if _, seen := c.history[nodeID]; !seen {
		c.order = append(c.order, nodeID)
	}
	c.history[nodeID] = HistoryEntry{
		NodeID:    nodeID,
		Status:    status,
		Input:     input,
		Output:    output,
		Timestamp: time.Now(),
	}
}

// NodeHistory returns a node's record, if it executed.
func (c *ExecContext) NodeHistory(nodeID string) (HistoryEntry, bool) {
	entry, ok := c.history[nodeID]
	return entry, ok
}

// History returns all records in execution order.
func (c *ExecContext) History() []HistoryEntry {
	out := make([]HistoryEntry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.history[id])
	}
	return out
}

// Len reports how many nodes have recorded history.
func (c *ExecContext) Len() int {
	return len(c.order)
}
