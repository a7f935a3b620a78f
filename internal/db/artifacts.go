package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const artifactColumns = `id, file_hash, file_path, mime_type, filesize, duration_seconds, source_url, user_id, created_at, updated_at`

func scanArtifact(row pgx.Row) (*MediaArtifact, error) {
	var a MediaArtifact
	err := row.Scan(
		&a.ID, &a.FileHash, &a.FilePath, &a.MimeType, &a.Filesize,
		&a.DurationSeconds, &a.SourceURL, &a.UserID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// InsertArtifactParams describes a payload being committed to the store.
type InsertArtifactParams struct {
	FileHash        string
	FilePath        string
	MimeType        string
	Filesize        int64
	DurationSeconds *int32
	SourceURL       *string
	UserID          pgtype.UUID
}

// InsertArtifact commits a new media artifact. The insert is create-if-absent
// on the unique content hash: when another ingestion already committed the
// same payload, created is false and the existing row is returned so the
// caller can fall back to duplicate linking.
func (q *Queries) InsertArtifact(ctx context.Context, params *InsertArtifactParams) (artifact *MediaArtifact, created bool, err error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO media_artifacts (id, file_hash, file_path, mime_type, filesize, duration_seconds, source_url, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (file_hash) DO NOTHING
		RETURNING `+artifactColumns,
		NewUUID(), params.FileHash, params.FilePath, params.MimeType,
		params.Filesize, params.DurationSeconds, params.SourceURL, params.UserID,
	)

	artifact, err = scanArtifact(row)
	if err == nil {
		return artifact, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("insert artifact: %w", err)
	}

	// Conflict: somebody else won the commit race for this hash.
	artifact, err = q.FindArtifactByHash(ctx, params.FileHash)
	if err != nil {
		return nil, false, fmt.Errorf("load conflicting artifact: %w", err)
	}
	return artifact, false, nil
}

func (q *Queries) GetArtifact(ctx context.Context, id pgtype.UUID) (*MediaArtifact, error) {
	return scanArtifact(q.db.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM media_artifacts WHERE id = $1`, id))
}

// FindArtifactByHash returns the artifact for a content hash, or nil when
// none exists.
func (q *Queries) FindArtifactByHash(ctx context.Context, fileHash string) (*MediaArtifact, error) {
	a, err := scanArtifact(q.db.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM media_artifacts WHERE file_hash = $1`, fileHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// FindArtifactBySourceURL returns the first artifact recorded for a source
// URL, or nil. Source URLs are first-seen metadata, not unique.
func (q *Queries) FindArtifactBySourceURL(ctx context.Context, sourceURL string) (*MediaArtifact, error) {
	a, err := scanArtifact(q.db.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM media_artifacts WHERE source_url = $1 ORDER BY created_at LIMIT 1`, sourceURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// BackfillArtifactSourceURL records sourceURL on an artifact that has none
// yet. A URL seen later never overwrites the first one.
func (q *Queries) BackfillArtifactSourceURL(ctx context.Context, id pgtype.UUID, sourceURL string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE media_artifacts SET source_url = $2, updated_at = now()
		WHERE id = $1 AND source_url IS NULL`, id, sourceURL)
	return err
}

// CountEntriesForArtifact returns how many library entries still reference
// the artifact.
func (q *Queries) CountEntriesForArtifact(ctx context.Context, id pgtype.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM library_entries WHERE media_artifact_id = $1`, id).Scan(&n)
	return n, err
}

func (q *Queries) DeleteArtifact(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM media_artifacts WHERE id = $1`, id)
	return err
}
