package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowforge/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func sampleConfig(nodeType string) json.RawMessage {
	return json.RawMessage(`{
		"nodes": [{"id": "n1", "type": "customNode", "data": {"type": "` + nodeType + `", "label": "start"}}],
		"edges": []
	}`)
}

// --- Workflow Tests ---

func TestCreateAndGetWorkflow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateWorkflow(ctx, &Workflow{
		Name:       "Multiple LLMs",
		Config:     sampleConfig("input"),
		ExportedAt: "2025-04-01T15:14:50.562Z",
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := s.GetWorkflow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Multiple LLMs", got.Name)
	assert.JSONEq(t, string(sampleConfig("input")), string(got.Config))
	assert.Equal(t, "2025-04-01T15:14:50.562Z", got.ExportedAt)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetWorkflowNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetWorkflow(context.Background(), 999)
	require.Error(t, err)
	var flowErr *schema.FlowError
	require.True(t, errors.As(err, &flowErr))
	assert.Equal(t, schema.ErrCodeNotFound, flowErr.Code)
}

func TestUpdateWorkflow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateWorkflow(ctx, &Workflow{Name: "before", Config: sampleConfig("input")})
	require.NoError(t, err)

	require.NoError(t, s.UpdateWorkflow(ctx, &Workflow{
		ID:     id,
		Name:   "after",
		Config: sampleConfig("llm"),
	}))

	got, err := s.GetWorkflow(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)

	err = s.UpdateWorkflow(ctx, &Workflow{ID: 999, Name: "x", Config: sampleConfig("input")})
	require.Error(t, err)
}

func TestListWorkflows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateWorkflow(ctx, &Workflow{Name: "one", Config: sampleConfig("input")})
	require.NoError(t, err)
	_, err = s.CreateWorkflow(ctx, &Workflow{Name: "two", Config: sampleConfig("input")})
	require.NoError(t, err)

	all, err := s.ListWorkflows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteWorkflow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateWorkflow(ctx, &Workflow{Name: "doomed", Config: sampleConfig("input")})
	require.NoError(t, err)

	require.NoError(t, s.DeleteWorkflow(ctx, id))

	_, err = s.GetWorkflow(ctx, id)
	require.Error(t, err)

	err = s.DeleteWorkflow(ctx, id)
	require.Error(t, err, "second delete reports not found")
}

func TestSearchWorkflowsByNodeType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateWorkflow(ctx, &Workflow{Name: "with llm", Config: sampleConfig("llm")})
	require.NoError(t, err)
	_, err = s.CreateWorkflow(ctx, &Workflow{Name: "plain", Config: sampleConfig("transform")})
	require.NoError(t, err)

	matches, err := s.SearchWorkflowsByNodeType(ctx, "llm")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "with llm", matches[0].Name)
}

// --- Run Tests ---

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	run := &Run{
		ID:           uuid.NewString(),
		WorkflowName: "adhoc",
		Status:       schema.RunStatusRunning,
		StartedAt:    now,
	}
	require.NoError(t, s.SaveRun(ctx, run))

	// Terminal update over the same id.
	completed := now.Add(time.Second)
	run.Status = schema.RunStatusCompleted
	run.Output = json.RawMessage(`{"final": 42}`)
	run.History = json.RawMessage(`[]`)
	run.CompletedAt = &completed
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.RunStatusCompleted, got.Status)
	assert.JSONEq(t, `{"final": 42}`, string(got.Output))
	require.NotNil(t, got.CompletedAt)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveRun(ctx, &Run{
			ID:        uuid.NewString(),
			Status:    schema.RunStatusCompleted,
			StartedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

// --- Run Event Tests ---

func TestRunEventsAppendAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	runID := uuid.NewString()

	require.NoError(t, s.AppendRunEvent(ctx, runID, schema.NodeEvent{NodeID: "1", IsSuccess: true}))
	require.NoError(t, s.AppendRunEvent(ctx, runID, schema.NodeEvent{NodeID: "2", IsSuccess: false, Error: "boom"}))

	events, err := s.ListRunEvents(ctx, runID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "1", events[0].NodeID)
	assert.Equal(t, "2", events[1].NodeID)
	assert.Equal(t, "boom", events[1].Error)

	other, err := s.ListRunEvents(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, other)
}

// --- Scheduled Job Tests ---

func TestScheduledJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wfID, err := s.CreateWorkflow(ctx, &Workflow{Name: "scheduled", Config: sampleConfig("input")})
	require.NoError(t, err)

	job := &ScheduledJob{
		ID:         uuid.NewString(),
		WorkflowID: wfID,
		CronExpr:   "*/5 * * * *",
		Enabled:    true,
	}
	require.NoError(t, s.CreateScheduledJob(ctx, job))

	got, err := s.GetScheduledJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", got.CronExpr)
	assert.True(t, got.Enabled)
	assert.Nil(t, got.LastRunAt)

	at := time.Now().UTC()
	require.NoError(t, s.MarkScheduledJobRun(ctx, job.ID, at))

	got, err = s.GetScheduledJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)

	jobs, err := s.ListScheduledJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	require.NoError(t, s.DeleteScheduledJob(ctx, job.ID))
	_, err = s.GetScheduledJob(ctx, job.ID)
	require.Error(t, err)
}
