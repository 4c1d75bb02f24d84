package schema

// RunStatus represents the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Node history status values written by node execution.
const (
	NodeStatusCompleted     = "completed"
	NodeStatusEvaluated     = "evaluated"
	NodeStatusParallelStart = "parallel_start"
	NodeStatusParallelEnd   = "parallel_end"
	NodeStatusFailed        = "failed"
)

// NodeEvent is emitted after each node finishes during a streaming run.
// The JSON shape matches the runtime protocol consumed by the editor.
type NodeEvent struct {
	NodeID    string `json:"nodeId"`
	IsSuccess bool   `json:"isSuccess"`
	Input     any    `json:"input"`
	Output    any    `json:"output"`
	Error     string `json:"error,omitempty"`
}
