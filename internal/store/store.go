// Package store persists workflow documents, run outcomes, and
// schedules in an embedded libSQL database.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rendis/flowforge/pkg/schema"
)

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Workflows
	CreateWorkflow(ctx context.Context, wf *Workflow) (int64, error)
	GetWorkflow(ctx context.Context, id int64) (*Workflow, error)
	UpdateWorkflow(ctx context.Context, wf *Workflow) error
	ListWorkflows(ctx context.Context) ([]*Workflow, error)
	DeleteWorkflow(ctx context.Context, id int64) error
	SearchWorkflowsByNodeType(ctx context.Context, nodeType string) ([]*Workflow, error)

	// Runs
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Run events (append-only)
	AppendRunEvent(ctx context.Context, runID string, event schema.NodeEvent) error
	ListRunEvents(ctx context.Context, runID string) ([]schema.NodeEvent, error)

	// Scheduled jobs
	CreateScheduledJob(ctx context.Context, job *ScheduledJob) error
	GetScheduledJob(ctx context.Context, id string) (*ScheduledJob, error)
	ListScheduledJobs(ctx context.Context) ([]*ScheduledJob, error)
	DeleteScheduledJob(ctx context.Context, id string) error
	MarkScheduledJobRun(ctx context.Context, id string, at time.Time) error
}

// Workflow is a stored workflow document plus editor metadata.
type Workflow struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Config     json.RawMessage `json:"config"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ExportedAt string          `json:"exported_at,omitempty"`
}

// Run is the persisted outcome of one execution.
type Run struct {
	ID           string           `json:"id"`
	WorkflowID   *int64           `json:"workflow_id,omitempty"`
	WorkflowName string           `json:"workflow_name,omitempty"`
	Status       schema.RunStatus `json:"status"`
	Output       json.RawMessage  `json:"output,omitempty"`
	History      json.RawMessage  `json:"history,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// ScheduledJob triggers a stored workflow on a cron expression.
type ScheduledJob struct {
	ID         string     `json:"id"`
	WorkflowID int64      `json:"workflow_id"`
	CronExpr   string     `json:"cron_expr"`
	Enabled    bool       `json:"enabled"`
	CreatedAt  time.Time  `json:"created_at"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
}
