package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/StageGate/internal/domain"
)

// uniqueViolation — код ошибки PostgreSQL для конфликта уникальности.
const uniqueViolation = "23505"

// defaultListLimit — лимит ListByWorkflow, если не задан.
const defaultListLimit = 50

// stageRunsSchema создаёт таблицу истории вызовов gate.
const stageRunsSchema = `
	CREATE TABLE IF NOT EXISTS stage_runs (
		id                UUID PRIMARY KEY,
		workflow_location TEXT NOT NULL,
		session_location  TEXT NOT NULL,
		stage             TEXT NOT NULL,
		script            TEXT,
		job_id            INTEGER,
		state             TEXT NOT NULL,
		outcome           TEXT,
		published         BOOLEAN NOT NULL DEFAULT false,
		error             TEXT,
		started_at        TIMESTAMPTZ NOT NULL,
		finished_at       TIMESTAMPTZ NOT NULL
	);
	ALTER TABLE stage_runs ADD COLUMN IF NOT EXISTS published BOOLEAN NOT NULL DEFAULT false;
	CREATE INDEX IF NOT EXISTS stage_runs_workflow_idx
		ON stage_runs (workflow_location, started_at DESC);
`

// GateRunRepo — репозиторий истории вызовов gate.
type GateRunRepo struct {
	pool *pgxpool.Pool
}

// NewGateRunRepo создаёт новый GateRunRepo.
func NewGateRunRepo(pool *pgxpool.Pool) *GateRunRepo {
	return &GateRunRepo{pool: pool}
}

// EnsureSchema создаёт таблицу stage_runs, если её нет.
func (r *GateRunRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, stageRunsSchema); err != nil {
		return fmt.Errorf("ensure stage_runs schema: %w", err)
	}
	return nil
}

// Create сохраняет запись о вызове.
func (r *GateRunRepo) Create(ctx context.Context, run *domain.GateRun) error {
	query := `
		INSERT INTO stage_runs (id, workflow_location, session_location, stage, script,
		                        job_id, state, outcome, published, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.WorkflowLocation,
		run.SessionLocation,
		run.Stage,
		nullString(run.Script),
		run.JobID,
		run.State,
		nullString(string(run.Outcome)),
		run.Published,
		nullString(run.Error),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: stage run %s", ErrAlreadyExists, run.ID)
		}
		return fmt.Errorf("insert stage run: %w", err)
	}
	return nil
}

// GetByID возвращает запись по ID вызова.
func (r *GateRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.GateRun, error) {
	query := `
		SELECT id, workflow_location, session_location, stage, script,
		       job_id, state, outcome, published, error, started_at, finished_at
		FROM stage_runs
		WHERE id = $1
	`
	run, err := scanGateRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListByWorkflow возвращает последние вызовы для workflow, новые первыми.
func (r *GateRunRepo) ListByWorkflow(ctx context.Context, workflow string, limit int) ([]domain.GateRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, workflow_location, session_location, stage, script,
		       job_id, state, outcome, published, error, started_at, finished_at
		FROM stage_runs
		WHERE workflow_location = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, workflow, limit)
	if err != nil {
		return nil, fmt.Errorf("list stage runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.GateRun
	for rows.Next() {
		run, err := scanGateRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// --- Helpers ---

// scanGateRun сканирует строку в GateRun.
// pgx.Rows удовлетворяет pgx.Row, поэтому один сканер на оба случая.
func scanGateRun(row pgx.Row) (*domain.GateRun, error) {
	var run domain.GateRun
	var script, outcome, runError *string

	err := row.Scan(
		&run.ID,
		&run.WorkflowLocation,
		&run.SessionLocation,
		&run.Stage,
		&script,
		&run.JobID,
		&run.State,
		&outcome,
		&run.Published,
		&runError,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan stage run: %w", err)
	}

	run.Script = derefString(script)
	run.Outcome = domain.ScriptOutcome(derefString(outcome))
	run.Error = derefString(runError)

	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// derefString возвращает "" для NULL.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
