package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"podforge.systems/podforge/internal/db"
	"podforge.systems/podforge/internal/youtube"
	"podforge.systems/podforge/pkg/fingerprint"
)

// SubmitParams describes one request to add content to a user's library.
type SubmitParams struct {
	UserID      pgtype.UUID
	Title       string
	Description *string
	SourceType  db.SourceType

	// SourceURL is required for url and youtube sources.
	SourceURL string

	// UploadFilename and UploadData carry the payload for upload sources. The
	// transport layer has already read the body; the service owns scratch
	// storage from here on.
	UploadFilename string
	UploadData     []byte
}

// SubmitResult reports what happened to a submission. Message is the stable
// user-facing notice for the outcome.
type SubmitResult struct {
	Entry     *db.LibraryEntry
	Message   string
	Duplicate bool
}

// Submit registers a new library entry and either resolves it immediately
// against existing content or enqueues background acquisition.
func (s *Service) Submit(ctx context.Context, params *SubmitParams) (*SubmitResult, error) {
	switch params.SourceType {
	case db.SourceTypeUpload:
		return s.submitUpload(ctx, params)
	case db.SourceTypeURL:
		return s.submitFromURL(ctx, params, MsgProcessingURL)
	case db.SourceTypeYouTube:
		if !youtube.IsValidURL(params.SourceURL) {
			return nil, fmt.Errorf("invalid YouTube URL")
		}
		return s.submitFromURL(ctx, params, MsgProcessingYouTube)
	default:
		return nil, fmt.Errorf("unsupported source type %q", params.SourceType)
	}
}

func (s *Service) submitUpload(ctx context.Context, params *SubmitParams) (*SubmitResult, error) {
	if len(params.UploadData) == 0 {
		return nil, fmt.Errorf("upload payload is empty")
	}
	hash := fingerprint.Hash(params.UploadData)

	// Same content already in this user's library: link it, flag the new
	// entry, and let deferred cleanup remove the marker.
	existing, err := s.store.FindUserEntryByHash(ctx, hash, params.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.MediaArtifactID.Valid {
		return s.insertLinked(ctx, params, nil, existing.MediaArtifactID, true, MsgDuplicateInLibrary)
	}

	// Same content committed by somebody else: share the artifact without
	// flagging the entry.
	artifact, err := s.store.FindArtifactByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if artifact != nil {
		return s.insertLinked(ctx, params, nil, artifact.ID, false, MsgLinkedExistingFile)
	}

	tempPath := s.files.NewTempUploadPath(params.UploadFilename)
	if err := s.files.Write(tempPath, params.UploadData); err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	entry, err := s.store.InsertEntry(ctx, &db.InsertEntryParams{
		UserID:      params.UserID,
		Title:       params.Title,
		Description: params.Description,
		SourceType:  db.SourceTypeUpload,
	})
	if err != nil {
		s.files.Delete(tempPath)
		return nil, err
	}
	if _, err := s.store.EnqueueJob(ctx, &db.EnqueueJobParams{
		Kind:       db.JobKindIngest,
		EntryID:    entry.ID,
		UploadPath: &tempPath,
	}); err != nil {
		return nil, err
	}
	return &SubmitResult{Entry: entry, Message: MsgProcessingUpload}, nil
}

func (s *Service) submitFromURL(ctx context.Context, params *SubmitParams, processingMsg string) (*SubmitResult, error) {
	sourceURL := strings.TrimSpace(params.SourceURL)
	if sourceURL == "" {
		return nil, fmt.Errorf("source URL is required")
	}

	// This user already submitted the exact URL.
	existing, err := s.store.FindUserEntryBySourceURL(ctx, sourceURL, params.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.MediaArtifactID.Valid {
		return s.insertLinked(ctx, params, &sourceURL, existing.MediaArtifactID, true, MsgURLAlreadyProcessed)
	}

	// Somebody already acquired this URL. For the submitting user that is a
	// duplicate; across users it is plain artifact sharing.
	artifact, err := s.store.FindArtifactBySourceURL(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	if artifact != nil {
		if sameUUID(artifact.UserID, params.UserID) {
			return s.insertLinked(ctx, params, &sourceURL, artifact.ID, true, MsgDuplicateInLibrary)
		}
		return s.insertLinked(ctx, params, &sourceURL, artifact.ID, false, MsgLinkedExistingFile)
	}

	entry, err := s.store.InsertEntry(ctx, &db.InsertEntryParams{
		UserID:      params.UserID,
		Title:       params.Title,
		Description: params.Description,
		SourceType:  params.SourceType,
		SourceURL:   &sourceURL,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.EnqueueJob(ctx, &db.EnqueueJobParams{
		Kind:    db.JobKindIngest,
		EntryID: entry.ID,
	}); err != nil {
		return nil, err
	}
	return &SubmitResult{Entry: entry, Message: processingMsg}, nil
}

// insertLinked creates an entry that is resolved at submission time: it goes
// straight to completed with an artifact link. Duplicate entries additionally
// get a deferred cleanup job.
func (s *Service) insertLinked(ctx context.Context, params *SubmitParams, sourceURL *string, artifactID pgtype.UUID, duplicate bool, msg string) (*SubmitResult, error) {
	entry, err := s.store.InsertEntry(ctx, &db.InsertEntryParams{
		UserID:      params.UserID,
		Title:       params.Title,
		Description: params.Description,
		SourceType:  params.SourceType,
		SourceURL:   sourceURL,
	})
	if err != nil {
		return nil, err
	}
	if err := s.linkExisting(ctx, entry.ID, artifactID, duplicate); err != nil {
		return nil, err
	}
	entry, err = s.store.GetEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Entry: entry, Message: msg, Duplicate: duplicate}, nil
}

// linkExisting completes an entry against an already-committed artifact.
func (s *Service) linkExisting(ctx context.Context, entryID pgtype.UUID, artifactID pgtype.UUID, duplicate bool) error {
	if err := s.store.CompleteEntry(ctx, &db.CompleteEntryParams{
		ID:              entryID,
		MediaArtifactID: artifactID,
		IsDuplicate:     duplicate,
	}); err != nil {
		return err
	}
	if !duplicate {
		return nil
	}
	_, err := s.store.EnqueueJob(ctx, &db.EnqueueJobParams{
		Kind:    db.JobKindCleanup,
		EntryID: entryID,
		RunAt:   time.Now().UTC().Add(s.cleanupDelay),
	})
	return err
}

func sameUUID(a pgtype.UUID, b pgtype.UUID) bool {
	return a.Valid && b.Valid && a.Bytes == b.Bytes
}
