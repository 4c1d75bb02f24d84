package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowforge/internal/store"
)

// mockJobStore satisfies store.Store for scheduler tests.
type mockJobStore struct {
	store.Store
	mu   sync.Mutex
	jobs map[string]*store.ScheduledJob
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[string]*store.ScheduledJob)}
}

func (m *mockJobStore) add(job *store.ScheduledJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
}

func (m *mockJobStore) ListScheduledJobs(context.Context) ([]*store.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.ScheduledJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockJobStore) MarkScheduledJobRun(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		j.LastRunAt = &at
	}
	return nil
}

// recordingRunner counts RunStored calls per workflow.
type recordingRunner struct {
	mu   sync.Mutex
	runs []int64
}

func (r *recordingRunner) RunStored(_ context.Context, workflowID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, workflowID)
	return nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func TestCalculateNextRun(t *testing.T) {
	s := NewScheduler(newMockJobStore(), &recordingRunner{}, nil)

	from := time.Date(2026, 1, 1, 10, 2, 0, 0, time.UTC)
	next, err := s.CalculateNextRun("*/5 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC), next)

	_, err = s.CalculateNextRun("not a cron", from)
	require.Error(t, err)
}

func TestTickRunsDueJobs(t *testing.T) {
	st := newMockJobStore()
	runner := &recordingRunner{}
	s := NewScheduler(st, runner, nil)

	// Created two minutes ago with an every-minute schedule: due now.
	created := time.Now().UTC().Add(-2 * time.Minute)
	st.add(&store.ScheduledJob{
		ID:         "due",
		WorkflowID: 7,
		CronExpr:   "* * * * *",
		Enabled:    true,
		CreatedAt:  created,
	})

	// Last ran moments ago with a yearly schedule: not due.
	recent := time.Now().UTC().Add(-time.Second)
	st.add(&store.ScheduledJob{
		ID:         "not-due",
		WorkflowID: 8,
		CronExpr:   "0 0 1 1 *",
		Enabled:    true,
		CreatedAt:  created,
		LastRunAt:  &recent,
	})

	// Disabled jobs never run.
	st.add(&store.ScheduledJob{
		ID:         "disabled",
		WorkflowID: 9,
		CronExpr:   "* * * * *",
		Enabled:    false,
		CreatedAt:  created,
	})

	s.Tick(context.Background())

	require.Equal(t, 1, runner.count())
	assert.Equal(t, int64(7), runner.runs[0])

	// The due job was stamped, so an immediate second tick skips it.
	s.Tick(context.Background())
	assert.Equal(t, 1, runner.count())
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(newMockJobStore(), &recordingRunner{}, nil)

	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()), "double start rejected")
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stop is idempotent")
}

func TestBadCronExpressionSkipped(t *testing.T) {
	st := newMockJobStore()
	runner := &recordingRunner{}
	s := NewScheduler(st, runner, nil)

	st.add(&store.ScheduledJob{
		ID:         "broken",
		WorkflowID: 1,
		CronExpr:   "not a cron",
		Enabled:    true,
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
	})

	s.Tick(context.Background())
	assert.Equal(t, 0, runner.count())
}
