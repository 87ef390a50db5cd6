package postgres

import (
	"context"
	"fmt"

	"github.com/fiapx/media-gallery/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS gallery_runs (
	id            UUID PRIMARY KEY,
	request_id    TEXT NOT NULL DEFAULT '',
	output_path   TEXT NOT NULL,
	status        TEXT NOT NULL,
	total         INTEGER NOT NULL DEFAULT 0,
	added         INTEGER NOT NULL DEFAULT 0,
	skipped_count INTEGER NOT NULL DEFAULT 0,
	parts         TEXT[] NOT NULL DEFAULT '{}',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS gallery_skips (
	id     BIGSERIAL PRIMARY KEY,
	run_id UUID NOT NULL REFERENCES gallery_runs(id) ON DELETE CASCADE,
	path   TEXT NOT NULL,
	kind   TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS gallery_skips_run_id_idx ON gallery_skips(run_id);
`

type RunRepository struct {
	pool *pgxpool.Pool
}

func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *RunRepository) Create(ctx context.Context, run *entity.Run) error {
	query := `
		INSERT INTO gallery_runs (
			id, request_id, output_path, status, total, added,
			skipped_count, parts, error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.RequestID, run.OutputPath, string(run.Status), run.Total, run.Added,
		run.SkippedCount, partsOf(run), run.ErrorMessage, run.CreatedAt, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *entity.Run) error {
	query := `
		UPDATE gallery_runs SET
			status=$2, total=$3, added=$4, skipped_count=$5, parts=$6,
			error_message=$7, updated_at=$8, completed_at=$9
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		run.ID, string(run.Status), run.Total, run.Added, run.SkippedCount, partsOf(run),
		run.ErrorMessage, run.UpdatedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// RecordSkips replaces the skipped items stored for runID.
func (r *RunRepository) RecordSkips(ctx context.Context, runID uuid.UUID, skips []entity.Skip) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM gallery_skips WHERE run_id=$1`, runID); err != nil {
		return fmt.Errorf("clear skips: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range skips {
		batch.Queue(`INSERT INTO gallery_skips (run_id, path, kind, reason) VALUES ($1,$2,$3,$4)`,
			runID, s.Path, string(s.Kind), s.Reason)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert skips: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit skips: %w", err)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	query := `
		SELECT id, request_id, output_path, status, total, added,
			skipped_count, parts, error_message, created_at, updated_at, completed_at
		FROM gallery_runs WHERE id=$1`

	run := &entity.Run{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.RequestID, &run.OutputPath, &status, &run.Total, &run.Added,
		&run.SkippedCount, &run.Parts, &run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find run by id: %w", err)
	}
	run.Status = entity.RunStatus(status)
	return run, nil
}

// FindSkips lists the skipped items of a run in insertion order.
func (r *RunRepository) FindSkips(ctx context.Context, runID uuid.UUID) ([]entity.Skip, error) {
	rows, err := r.pool.Query(ctx, `SELECT path, kind, reason FROM gallery_skips WHERE run_id=$1 ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query skips: %w", err)
	}
	defer rows.Close()

	var skips []entity.Skip
	for rows.Next() {
		var s entity.Skip
		var kind string
		if err := rows.Scan(&s.Path, &kind, &s.Reason); err != nil {
			return nil, fmt.Errorf("scan skip: %w", err)
		}
		s.Kind = entity.FailureKind(kind)
		skips = append(skips, s)
	}
	return skips, rows.Err()
}

func partsOf(run *entity.Run) []string {
	if run.Parts == nil {
		return []string{}
	}
	return run.Parts
}
