package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/flowforge/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Workflows ---

func (s *LibSQLStore) CreateWorkflow(ctx context.Context, wf *Workflow) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (name, config_json, created_at, updated_at, exported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		wf.Name, string(wf.Config), timeOrNow(wf.CreatedAt), timeOrNow(wf.UpdatedAt), nullStr(wf.ExportedAt),
	)
	if err != nil {
		return 0, wrapStoreErr("create workflow", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapStoreErr("create workflow", err)
	}
	wf.ID = id
	return id, nil
}

func (s *LibSQLStore) GetWorkflow(ctx context.Context, id int64) (*Workflow, error) {
	wf, err := scanWorkflow(s.db.QueryRowContext(ctx,
		`SELECT id, name, config_json, created_at, updated_at, exported_at
		 FROM workflows WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, storeNotFound("workflow", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, wrapStoreErr("get workflow", err)
	}
	return wf, nil
}

func (s *LibSQLStore) UpdateWorkflow(ctx context.Context, wf *Workflow) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workflows SET name = ?, config_json = ?, updated_at = ?, exported_at = ?
		 WHERE id = ?`,
		wf.Name, string(wf.Config), time.Now().UTC(), nullStr(wf.ExportedAt), wf.ID,
	)
	if err != nil {
		return wrapStoreErr("update workflow", err)
	}
	return checkRowsAffected(res, "workflow", strconv.FormatInt(wf.ID, 10))
}

func (s *LibSQLStore) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, config_json, created_at, updated_at, exported_at
		 FROM workflows ORDER BY updated_at DESC`)
	if err != nil {
		return nil, wrapStoreErr("list workflows", err)
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

func (s *LibSQLStore) DeleteWorkflow(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return wrapStoreErr("delete workflow", err)
	}
	return checkRowsAffected(res, "workflow", strconv.FormatInt(id, 10))
}

// SearchWorkflowsByNodeType returns workflows whose documents contain at
// least one node of the given variant.
func (s *LibSQLStore) SearchWorkflowsByNodeType(ctx context.Context, nodeType string) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, config_json, created_at, updated_at, exported_at
		 FROM workflows
		 WHERE EXISTS (
		   SELECT 1 FROM json_each(config_json, '$.nodes') AS node
		   WHERE json_extract(node.value, '$.data.type') = ?
		 )
		 ORDER BY updated_at DESC`, nodeType)
	if err != nil {
		return nil, wrapStoreErr("search workflows", err)
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

// --- Runs ---

func (s *LibSQLStore) SaveRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, workflow_id, workflow_name, status, output_json, history_json, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, output_json=excluded.output_json,
		   history_json=excluded.history_json, completed_at=excluded.completed_at`,
		run.ID, nullInt(run.WorkflowID), nullStr(run.WorkflowName), string(run.Status),
		nullRaw(run.Output), nullRaw(run.History), timeOrNow(run.StartedAt), nullTime(run.CompletedAt),
	)
	return wrapStoreErr("save run", err)
}

func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, workflow_id, workflow_name, status, output_json, history_json, started_at, completed_at
		 FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, wrapStoreErr("get run", err)
	}
	return run, nil
}

func (s *LibSQLStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_id, workflow_name, status, output_json, history_json, started_at, completed_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, wrapStoreErr("list runs", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, wrapStoreErr("list runs", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- Run events ---

func (s *LibSQLStore) AppendRunEvent(ctx context.Context, runID string, event schema.NodeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return wrapStoreErr("append run event", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, seq, event_json)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM run_events WHERE run_id = ?), ?)`,
		runID, runID, string(payload),
	)
	return wrapStoreErr("append run event", err)
}

func (s *LibSQLStore) ListRunEvents(ctx context.Context, runID string) ([]schema.NodeEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_json FROM run_events WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, wrapStoreErr("list run events", err)
	}
	defer rows.Close()

	var events []schema.NodeEvent
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, wrapStoreErr("list run events", err)
		}
		var event schema.NodeEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, wrapStoreErr("list run events", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// --- Scheduled jobs ---

func (s *LibSQLStore) CreateScheduledJob(ctx context.Context, job *ScheduledJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (id, workflow_id, cron_expr, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.WorkflowID, job.CronExpr, job.Enabled, timeOrNow(job.CreatedAt),
	)
	return wrapStoreErr("create scheduled job", err)
}

func (s *LibSQLStore) GetScheduledJob(ctx context.Context, id string) (*ScheduledJob, error) {
	job := &ScheduledJob{}
	var lastRun sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, workflow_id, cron_expr, enabled, created_at, last_run_at
		 FROM scheduled_jobs WHERE id = ?`, id,
	).Scan(&job.ID, &job.WorkflowID, &job.CronExpr, &job.Enabled, &job.CreatedAt, &lastRun)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("scheduled job", id)
	}
	if err != nil {
		return nil, wrapStoreErr("get scheduled job", err)
	}
	if lastRun.Valid {
		job.LastRunAt = &lastRun.Time
	}
	return job, nil
}

func (s *LibSQLStore) ListScheduledJobs(ctx context.Context) ([]*ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_id, cron_expr, enabled, created_at, last_run_at
		 FROM scheduled_jobs ORDER BY created_at`)
	if err != nil {
		return nil, wrapStoreErr("list scheduled jobs", err)
	}
	defer rows.Close()

	var jobs []*ScheduledJob
	for rows.Next() {
		job := &ScheduledJob{}
		var lastRun sql.NullTime
		if err := rows.Scan(&job.ID, &job.WorkflowID, &job.CronExpr, &job.Enabled, &job.CreatedAt, &lastRun); err != nil {
			return nil, wrapStoreErr("list scheduled jobs", err)
		}
		if lastRun.Valid {
			job.LastRunAt = &lastRun.Time
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *LibSQLStore) DeleteScheduledJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
	if err != nil {
		return wrapStoreErr("delete scheduled job", err)
	}
	return checkRowsAffected(res, "scheduled job", id)
}

func (s *LibSQLStore) MarkScheduledJobRun(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_jobs SET last_run_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return wrapStoreErr("mark scheduled job", err)
	}
	return checkRowsAffected(res, "scheduled job", id)
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*Workflow, error) {
	wf := &Workflow{}
	var config string
	var exported sql.NullString
	var updated sql.NullTime
	if err := row.Scan(&wf.ID, &wf.Name, &config, &wf.CreatedAt, &updated, &exported); err != nil {
		return nil, err
	}
	wf.Config = json.RawMessage(config)
	if updated.Valid {
		wf.UpdatedAt = updated.Time
	}
	if exported.Valid {
		wf.ExportedAt = exported.String
	}
	return wf, nil
}

func collectWorkflows(rows *sql.Rows) ([]*Workflow, error) {
	var workflows []*Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, wrapStoreErr("scan workflow", err)
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var workflowID sql.NullInt64
	var name, output, history sql.NullString
	var status string
	var completed sql.NullTime
	if err := row.Scan(&run.ID, &workflowID, &name, &status, &output, &history, &run.StartedAt, &completed); err != nil {
		return nil, err
	}
	run.Status = schema.RunStatus(status)
	if workflowID.Valid {
		run.WorkflowID = &workflowID.Int64
	}
	if name.Valid {
		run.WorkflowName = name.String
	}
	run.Output = rawOrNil(output)
	run.History = rawOrNil(history)
	if completed.Valid {
		run.CompletedAt = &completed.Time
	}
	return run, nil
}

// --- value helpers ---

func storeNotFound(resource, id string) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %s", op, err.Error()).WithCause(err)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

var _ Store = (*LibSQLStore)(nil)
