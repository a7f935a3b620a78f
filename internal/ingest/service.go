// Package ingest drives a library entry from submission to a terminal state:
// duplicate resolution, source acquisition, content-addressed commit, and
// deferred cleanup of transient duplicate markers.
package ingest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"podforge.systems/podforge/internal/db"
	"podforge.systems/podforge/internal/mediastore"
	"podforge.systems/podforge/pkg/ytdlp"
)

// Store is the persistence surface the pipeline needs. *db.Queries satisfies
// it; tests plug an in-memory fake.
type Store interface {
	InsertEntry(ctx context.Context, params *db.InsertEntryParams) (*db.LibraryEntry, error)
	GetEntry(ctx context.Context, id pgtype.UUID) (*db.LibraryEntry, error)
	MarkEntryProcessing(ctx context.Context, id pgtype.UUID) error
	CompleteEntry(ctx context.Context, params *db.CompleteEntryParams) error
	FailEntry(ctx context.Context, id pgtype.UUID, processingError string) error
	UpdateEntryMetadata(ctx context.Context, id pgtype.UUID, title string, description *string) error
	DeleteEntry(ctx context.Context, id pgtype.UUID) error
	DeleteEntryIfStillDuplicate(ctx context.Context, id pgtype.UUID) (bool, error)

	FindUserEntryBySourceURL(ctx context.Context, sourceURL string, userID pgtype.UUID) (*db.LibraryEntry, error)
	FindUserEntryByHash(ctx context.Context, fileHash string, userID pgtype.UUID) (*db.LibraryEntry, error)

	InsertArtifact(ctx context.Context, params *db.InsertArtifactParams) (*db.MediaArtifact, bool, error)
	GetArtifact(ctx context.Context, id pgtype.UUID) (*db.MediaArtifact, error)
	FindArtifactByHash(ctx context.Context, fileHash string) (*db.MediaArtifact, error)
	FindArtifactBySourceURL(ctx context.Context, sourceURL string) (*db.MediaArtifact, error)
	BackfillArtifactSourceURL(ctx context.Context, id pgtype.UUID, sourceURL string) error
	CountEntriesForArtifact(ctx context.Context, id pgtype.UUID) (int64, error)
	DeleteArtifact(ctx context.Context, id pgtype.UUID) error

	EnqueueJob(ctx context.Context, params *db.EnqueueJobParams) (*db.IngestJob, error)
}

// Downloader fetches a remote media payload.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// AudioExtractor is the external extraction tool surface (yt-dlp).
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, url string, outputTemplate string, extraArgs ...string) error
	GetInfo(ctx context.Context, url string, extraArgs ...string) (*ytdlp.Info, error)
}

const (
	// defaultCleanupDelay is the grace period before a confirmed duplicate
	// entry is removed, so the submitting client can observe the notice.
	defaultCleanupDelay = 5 * time.Minute

	// extractTimeout bounds one yt-dlp extraction run.
	extractTimeout = 5 * time.Minute
)

// Service is the ingestion orchestrator.
type Service struct {
	store        Store
	files        *mediastore.Store
	downloader   Downloader
	extractor    AudioExtractor
	cleanupDelay time.Duration
}

type Options struct {
	// CleanupDelay overrides the duplicate-entry grace period.
	CleanupDelay time.Duration
}

func NewService(store Store, files *mediastore.Store, downloader Downloader, extractor AudioExtractor, opts Options) *Service {
	delay := opts.CleanupDelay
	if delay <= 0 {
		delay = defaultCleanupDelay
	}
	return &Service{
		store:        store,
		files:        files,
		downloader:   downloader,
		extractor:    extractor,
		cleanupDelay: delay,
	}
}

// User-facing result messages. Returned as values, never session state.
const (
	MsgProcessingUpload  = "Media file uploaded successfully. Processing..."
	MsgProcessingURL     = "Media file is being downloaded and processed. This may take a few moments."
	MsgProcessingYouTube = "YouTube audio is being extracted and processed. This may take a few minutes."

	MsgDuplicateInLibrary  = "Duplicate file detected. This file already exists in your library and will be removed automatically in 5 minutes."
	MsgURLAlreadyProcessed = "This URL has already been processed. The existing media file has been linked to this library item."
	MsgLinkedExistingFile  = "File already exists in the system. Linked to existing media file."
)
