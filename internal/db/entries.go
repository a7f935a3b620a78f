package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const entryColumns = `id, user_id, media_artifact_id, title, description, source_type, source_url,
	is_duplicate, duplicate_detected_at, processing_status, processing_started_at,
	processing_completed_at, processing_error, created_at, updated_at`

func scanEntry(row pgx.Row) (*LibraryEntry, error) {
	var e LibraryEntry
	err := row.Scan(
		&e.ID, &e.UserID, &e.MediaArtifactID, &e.Title, &e.Description,
		&e.SourceType, &e.SourceURL, &e.IsDuplicate, &e.DuplicateDetectedAt,
		&e.ProcessingStatus, &e.ProcessingStartedAt, &e.ProcessingCompletedAt,
		&e.ProcessingError, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

type InsertEntryParams struct {
	UserID      pgtype.UUID
	Title       string
	Description *string
	SourceType  SourceType
	SourceURL   *string
}

// InsertEntry creates a library entry in the pending state.
func (q *Queries) InsertEntry(ctx context.Context, params *InsertEntryParams) (*LibraryEntry, error) {
	e, err := scanEntry(q.db.QueryRow(ctx, `
		INSERT INTO library_entries (id, user_id, title, description, source_type, source_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+entryColumns,
		NewUUID(), params.UserID, params.Title, params.Description, params.SourceType, params.SourceURL,
	))
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

func (q *Queries) GetEntry(ctx context.Context, id pgtype.UUID) (*LibraryEntry, error) {
	return scanEntry(q.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM library_entries WHERE id = $1`, id))
}

func (q *Queries) ListEntriesForUser(ctx context.Context, userID pgtype.UUID) ([]*LibraryEntry, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+entryColumns+` FROM library_entries WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*LibraryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FindUserEntryBySourceURL returns the user's existing entry for an exact
// source URL, or nil.
func (q *Queries) FindUserEntryBySourceURL(ctx context.Context, sourceURL string, userID pgtype.UUID) (*LibraryEntry, error) {
	e, err := scanEntry(q.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM library_entries
		 WHERE source_url = $1 AND user_id = $2 ORDER BY created_at LIMIT 1`, sourceURL, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// FindUserEntryByHash returns a user's entry whose linked artifact carries
// the given content hash, or nil.
func (q *Queries) FindUserEntryByHash(ctx context.Context, fileHash string, userID pgtype.UUID) (*LibraryEntry, error) {
	e, err := scanEntry(q.db.QueryRow(ctx, `
		SELECT `+entryColumnsPrefixed("le")+`
		FROM library_entries le
		JOIN media_artifacts ma ON ma.id = le.media_artifact_id
		WHERE ma.file_hash = $1 AND le.user_id = $2
		ORDER BY le.created_at LIMIT 1`, fileHash, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// MarkEntryProcessing performs the pending -> processing transition: records
// the start timestamp and clears any previous error.
func (q *Queries) MarkEntryProcessing(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `
		UPDATE library_entries
		SET processing_status = 'processing', processing_started_at = now(),
		    processing_error = NULL, updated_at = now()
		WHERE id = $1`, id)
	return err
}

type CompleteEntryParams struct {
	ID              pgtype.UUID
	MediaArtifactID pgtype.UUID
	IsDuplicate     bool
}

// CompleteEntry transitions processing -> completed, links the artifact, and
// records the duplicate flag + detection timestamp when set.
func (q *Queries) CompleteEntry(ctx context.Context, params *CompleteEntryParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE library_entries
		SET processing_status = 'completed', processing_completed_at = now(),
		    media_artifact_id = $2, is_duplicate = $3,
		    duplicate_detected_at = CASE WHEN $3 THEN now() ELSE duplicate_detected_at END,
		    updated_at = now()
		WHERE id = $1`, params.ID, params.MediaArtifactID, params.IsDuplicate)
	return err
}

// FailEntry transitions processing -> failed with a human-readable message.
func (q *Queries) FailEntry(ctx context.Context, id pgtype.UUID, processingError string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE library_entries
		SET processing_status = 'failed', processing_completed_at = now(),
		    processing_error = $2, updated_at = now()
		WHERE id = $1`, id, processingError)
	return err
}

// UpdateEntryMetadata backfills title/description discovered during
// acquisition (YouTube metadata when the user supplied none).
func (q *Queries) UpdateEntryMetadata(ctx context.Context, id pgtype.UUID, title string, description *string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE library_entries SET title = $2, description = $3, updated_at = now()
		WHERE id = $1`, id, title, description)
	return err
}

// DeleteEntry removes a library entry row.
func (q *Queries) DeleteEntry(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM library_entries WHERE id = $1`, id)
	return err
}

// DeleteEntryIfStillDuplicate removes an entry only while it is still flagged
// as a duplicate; returns whether a row was deleted. Deferred cleanup uses
// this so an entry un-flagged in the meantime survives.
func (q *Queries) DeleteEntryIfStillDuplicate(ctx context.Context, id pgtype.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM library_entries WHERE id = $1 AND is_duplicate = true`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func entryColumnsPrefixed(alias string) string {
	return alias + `.id, ` + alias + `.user_id, ` + alias + `.media_artifact_id, ` + alias + `.title, ` +
		alias + `.description, ` + alias + `.source_type, ` + alias + `.source_url, ` +
		alias + `.is_duplicate, ` + alias + `.duplicate_detected_at, ` + alias + `.processing_status, ` +
		alias + `.processing_started_at, ` + alias + `.processing_completed_at, ` +
		alias + `.processing_error, ` + alias + `.created_at, ` + alias + `.updated_at`
}
