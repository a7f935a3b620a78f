package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"podforge.systems/podforge/internal/db"
)

// ErrEntryNotFound reports a missing library entry.
var ErrEntryNotFound = errors.New("library entry not found")

// ErrNotOwner reports an entry operation attempted by a non-owner.
var ErrNotOwner = errors.New("entry belongs to another user")

// runCleanup removes a duplicate marker entry after its grace period, unless
// it was un-flagged in the meantime, then garbage collects the artifact if
// nothing references it anymore.
func (s *Service) runCleanup(ctx context.Context, job *db.IngestJob) error {
	entry, err := s.store.GetEntry(ctx, job.EntryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	artifactID := entry.MediaArtifactID
	deleted, err := s.store.DeleteEntryIfStillDuplicate(ctx, entry.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	slog.Info("removed duplicate entry",
		slog.String("entry_id", db.UUIDString(entry.ID)),
		slog.String("user_id", db.UUIDString(entry.UserID)))

	if !artifactID.Valid {
		return nil
	}
	return s.collectOrphanArtifact(ctx, artifactID)
}

// Remove deletes a library entry on behalf of its owner and garbage collects
// the linked artifact when the entry was its last reference.
func (s *Service) Remove(ctx context.Context, entryID pgtype.UUID, userID pgtype.UUID) error {
	entry, err := s.store.GetEntry(ctx, entryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEntryNotFound
	}
	if err != nil {
		return err
	}
	if !sameUUID(entry.UserID, userID) {
		return ErrNotOwner
	}

	artifactID := entry.MediaArtifactID
	if err := s.store.DeleteEntry(ctx, entry.ID); err != nil {
		return err
	}
	if !artifactID.Valid {
		return nil
	}
	return s.collectOrphanArtifact(ctx, artifactID)
}

// collectOrphanArtifact drops an artifact, file first, once its reference
// count reaches zero.
func (s *Service) collectOrphanArtifact(ctx context.Context, artifactID pgtype.UUID) error {
	n, err := s.store.CountEntriesForArtifact(ctx, artifactID)
	if err != nil || n > 0 {
		return err
	}

	artifact, err := s.store.GetArtifact(ctx, artifactID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.files.Delete(artifact.FilePath); err != nil {
		return err
	}
	if err := s.store.DeleteArtifact(ctx, artifactID); err != nil {
		return err
	}
	slog.Info("collected orphaned artifact",
		slog.String("artifact_id", db.UUIDString(artifactID)),
		slog.String("path", artifact.FilePath))
	return nil
}
