package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const jobColumns = `id, kind, entry_id, status, run_at, upload_path, attempts, last_error, created_at`

func scanJob(row pgx.Row) (*IngestJob, error) {
	var j IngestJob
	err := row.Scan(
		&j.ID, &j.Kind, &j.EntryID, &j.Status, &j.RunAt,
		&j.UploadPath, &j.Attempts, &j.LastError, &j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

type EnqueueJobParams struct {
	Kind    JobKind
	EntryID pgtype.UUID
	// RunAt defers execution; zero means now.
	RunAt time.Time
	// UploadPath is the scratch path of an already-uploaded payload, for
	// upload-sourced ingest jobs.
	UploadPath *string
}

// EnqueueJob inserts a queue row. An insert trigger NOTIFYs the ingest_jobs
// channel so idle workers wake immediately.
func (q *Queries) EnqueueJob(ctx context.Context, params *EnqueueJobParams) (*IngestJob, error) {
	runAt := params.RunAt
	if runAt.IsZero() {
		runAt = time.Now().UTC()
	}

	j, err := scanJob(q.db.QueryRow(ctx, `
		INSERT INTO ingest_jobs (id, kind, entry_id, run_at, upload_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+jobColumns,
		NewUUID(), params.Kind, params.EntryID, pgtype.Timestamptz{Time: runAt, Valid: true}, params.UploadPath,
	))
	if err != nil {
		return nil, fmt.Errorf("enqueue %s job: %w", params.Kind, err)
	}
	return j, nil
}

// DequeueJob claims the oldest runnable job. Claims are exclusive across
// concurrent workers (FOR UPDATE SKIP LOCKED); deferred jobs stay invisible
// until run_at. Returns pgx.ErrNoRows when nothing is runnable.
func (q *Queries) DequeueJob(ctx context.Context) (*IngestJob, error) {
	return scanJob(q.db.QueryRow(ctx, `
		UPDATE ingest_jobs SET status = 'running', attempts = attempts + 1
		WHERE id = (
			SELECT id FROM ingest_jobs
			WHERE status = 'queued' AND run_at <= now()
			ORDER BY run_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns))
}

func (q *Queries) MarkJobDone(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `UPDATE ingest_jobs SET status = 'done' WHERE id = $1`, id)
	return err
}

func (q *Queries) MarkJobFailed(ctx context.Context, id pgtype.UUID, lastError string) error {
	_, err := q.db.Exec(ctx,
		`UPDATE ingest_jobs SET status = 'failed', last_error = $2 WHERE id = $1`, id, lastError)
	return err
}

// RecoverStuckJobs requeues jobs left in 'running' by a previous worker
// instance that crashed or was restarted mid-flight. At-least-once delivery;
// the pipeline's finalize step keeps re-runs idempotent.
func (q *Queries) RecoverStuckJobs(ctx context.Context) error {
	_, err := q.db.Exec(ctx, `UPDATE ingest_jobs SET status = 'queued' WHERE status = 'running'`)
	return err
}

// ListenIngestJobs subscribes the connection to the job-queue notification
// channel.
func (q *Queries) ListenIngestJobs(ctx context.Context) error {
	_, err := q.db.Exec(ctx, `LISTEN ingest_jobs`)
	return err
}
