package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ProcessingStatus is the library entry lifecycle state machine:
// pending -> processing -> completed | failed. Terminal states are final.
type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// DisplayName returns the stable user-facing label for a status.
func (s ProcessingStatus) DisplayName() string {
	switch s {
	case ProcessingStatusPending:
		return "Pending"
	case ProcessingStatusProcessing:
		return "Processing"
	case ProcessingStatusCompleted:
		return "Completed"
	case ProcessingStatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

func (s ProcessingStatus) IsTerminal() bool {
	return s == ProcessingStatusCompleted || s == ProcessingStatusFailed
}

// SourceType tags how a library entry's content is acquired.
type SourceType string

const (
	SourceTypeUpload  SourceType = "upload"
	SourceTypeURL     SourceType = "url"
	SourceTypeYouTube SourceType = "youtube"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceTypeUpload, SourceTypeURL, SourceTypeYouTube:
		return true
	}
	return false
}

// JobKind distinguishes queue work items.
type JobKind string

const (
	JobKindIngest  JobKind = "ingest"
	JobKindCleanup JobKind = "cleanup"
)

// User is the minimal identity row; authentication lives elsewhere.
type User struct {
	ID        pgtype.UUID
	Username  string
	CreatedAt pgtype.Timestamptz
}

// MediaArtifact is one physically stored, deduplicated payload. At most one
// row exists per content hash.
type MediaArtifact struct {
	ID              pgtype.UUID
	FileHash        string
	FilePath        string
	MimeType        string
	Filesize        int64
	DurationSeconds *int32
	SourceURL       *string
	UserID          pgtype.UUID
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

// LibraryEntry is one user's request to add content to their library.
type LibraryEntry struct {
	ID                    pgtype.UUID
	UserID                pgtype.UUID
	MediaArtifactID       pgtype.UUID
	Title                 string
	Description           *string
	SourceType            SourceType
	SourceURL             *string
	IsDuplicate           bool
	DuplicateDetectedAt   pgtype.Timestamptz
	ProcessingStatus      ProcessingStatus
	ProcessingStartedAt   pgtype.Timestamptz
	ProcessingCompletedAt pgtype.Timestamptz
	ProcessingError       *string
	CreatedAt             pgtype.Timestamptz
	UpdatedAt             pgtype.Timestamptz
}

// IngestJob is one queued unit of work: an ingestion run or a deferred
// duplicate-entry cleanup.
type IngestJob struct {
	ID         pgtype.UUID
	Kind       JobKind
	EntryID    pgtype.UUID
	Status     string
	RunAt      pgtype.Timestamptz
	UploadPath *string
	Attempts   int32
	LastError  *string
	CreatedAt  pgtype.Timestamptz
}

// NewUUID wraps a freshly generated v4 UUID for pgx.
func NewUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

// ParseUUID converts a string id into a pgtype.UUID.
func ParseUUID(s string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

// UUIDString formats a pgtype.UUID, or returns "" when invalid.
func UUIDString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
