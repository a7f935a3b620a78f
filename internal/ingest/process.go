package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"podforge.systems/podforge/internal/db"
	"podforge.systems/podforge/internal/mediastore"
	"podforge.systems/podforge/internal/youtube"
	"podforge.systems/podforge/pkg/fingerprint"
	"podforge.systems/podforge/pkg/mediasig"
	"podforge.systems/podforge/pkg/ytdlp"
)

// errEntryDeleted signals that acquisition removed the entry outright instead
// of failing it. The job completes normally.
var errEntryDeleted = errors.New("entry deleted during acquisition")

// RunJob executes one dequeued queue item. A returned error means the job
// itself should be marked failed; entry-level failures are recorded on the
// entry and complete the job normally.
func (s *Service) RunJob(ctx context.Context, job *db.IngestJob) error {
	switch job.Kind {
	case db.JobKindIngest:
		return s.runIngest(ctx, job)
	case db.JobKindCleanup:
		return s.runCleanup(ctx, job)
	default:
		return fmt.Errorf("unknown job kind %q", job.Kind)
	}
}

func (s *Service) runIngest(ctx context.Context, job *db.IngestJob) error {
	entry, err := s.store.GetEntry(ctx, job.EntryID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Entry deleted while the job sat in the queue.
		s.dropJobScratch(job)
		return nil
	}
	if err != nil {
		return err
	}
	if entry.ProcessingStatus.IsTerminal() {
		// At-least-once delivery: a redelivered job for a finished entry is a
		// no-op.
		s.dropJobScratch(job)
		return nil
	}

	if err := s.store.MarkEntryProcessing(ctx, entry.ID); err != nil {
		return err
	}

	procErr := s.acquireAndCommit(ctx, entry, job)
	if procErr == nil || errors.Is(procErr, errEntryDeleted) {
		return nil
	}

	msg := failureMessage(entry.SourceType, procErr)
	slog.Warn("ingestion failed",
		slog.String("entry_id", db.UUIDString(entry.ID)),
		slog.String("source_type", string(entry.SourceType)),
		slog.String("error", msg))
	return s.store.FailEntry(ctx, entry.ID, msg)
}

func (s *Service) acquireAndCommit(ctx context.Context, entry *db.LibraryEntry, job *db.IngestJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch entry.SourceType {
	case db.SourceTypeUpload:
		return s.ingestUpload(ctx, entry, job)
	case db.SourceTypeURL:
		return s.ingestURL(ctx, entry)
	case db.SourceTypeYouTube:
		return s.ingestYouTube(ctx, entry)
	default:
		return fmt.Errorf("unsupported source type %q", entry.SourceType)
	}
}

// payload is one acquired media candidate ready to commit.
type payload struct {
	data []byte
	ext  string
	mime string
	// fromPath, when set, is a scratch file holding data; commit moves it into
	// place instead of rewriting the bytes.
	fromPath string
	// durationSeconds is recorded when the source reported it.
	durationSeconds *int32
}

func (s *Service) ingestUpload(ctx context.Context, entry *db.LibraryEntry, job *db.IngestJob) error {
	if job.UploadPath == nil || !s.files.Exists(*job.UploadPath) {
		return errors.New("Temp file not found or inaccessible")
	}
	tempPath := *job.UploadPath
	defer s.files.Delete(tempPath)

	data, err := s.files.Read(tempPath)
	if err != nil {
		return err
	}
	return s.commit(ctx, entry, &payload{
		data:     data,
		ext:      extFromName(tempPath),
		mime:     mediasig.DetectMIME(data),
		fromPath: tempPath,
	})
}

func (s *Service) ingestURL(ctx context.Context, entry *db.LibraryEntry) error {
	if entry.SourceURL == nil {
		return errors.New("entry has no source URL")
	}
	sourceURL := *entry.SourceURL

	// Another ingestion may have acquired this URL since submission.
	if linked, err := s.linkBySourceURL(ctx, entry, sourceURL); linked || err != nil {
		return err
	}

	data, err := s.downloader.Download(ctx, sourceURL)
	if err != nil {
		return err
	}
	return s.commit(ctx, entry, &payload{
		data: data,
		ext:  extFromURL(sourceURL),
		mime: mediasig.DetectMIME(data),
	})
}

func (s *Service) ingestYouTube(ctx context.Context, entry *db.LibraryEntry) error {
	if entry.SourceURL == nil {
		return errors.New("entry has no source URL")
	}
	sourceURL := *entry.SourceURL

	if _, err := youtube.ExtractVideoID(sourceURL); err != nil {
		// Without a video id there is nothing to retry and nothing worth
		// keeping: drop the entry instead of failing it.
		slog.Warn("removing entry with unparseable video id",
			slog.String("entry_id", db.UUIDString(entry.ID)),
			slog.String("url", sourceURL))
		if err := s.store.DeleteEntry(ctx, entry.ID); err != nil {
			return err
		}
		return errEntryDeleted
	}

	if linked, err := s.linkBySourceURL(ctx, entry, sourceURL); linked || err != nil {
		return err
	}

	scratch, err := s.files.NewScratchDir()
	if err != nil {
		return err
	}
	defer s.files.RemoveDir(scratch)

	extractCtx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()
	template := filepath.Join(s.files.Abs(scratch), "audio.%(ext)s")
	if err := s.extractor.ExtractAudio(extractCtx, sourceURL, template); err != nil {
		return err
	}

	produced, ok := s.files.FindByBaseName(scratch, "audio")
	if !ok {
		return errors.New("extracted audio file not found")
	}

	info := s.backfillMetadata(ctx, entry, sourceURL)
	var duration *int32
	if info != nil && info.Duration > 0 {
		d := int32(info.Duration)
		duration = &d
	}

	data, err := s.files.Read(produced)
	if err != nil {
		return err
	}
	return s.commit(ctx, entry, &payload{
		data:            data,
		ext:             extFromName(produced),
		mime:            mediasig.DetectMIME(data),
		fromPath:        produced,
		durationSeconds: duration,
	})
}

// linkBySourceURL resolves the entry against an artifact already recorded for
// its URL. This runs before acquisition, so the link is not flagged as a
// duplicate.
func (s *Service) linkBySourceURL(ctx context.Context, entry *db.LibraryEntry, sourceURL string) (bool, error) {
	artifact, err := s.store.FindArtifactBySourceURL(ctx, sourceURL)
	if err != nil || artifact == nil {
		return false, err
	}
	return true, s.linkExisting(ctx, entry.ID, artifact.ID, false)
}

// backfillMetadata fills in title/description from the extraction tool when
// the user submitted the entry without a title. Best effort only; the fetched
// info is returned for further use.
func (s *Service) backfillMetadata(ctx context.Context, entry *db.LibraryEntry, sourceURL string) *ytdlp.Info {
	if strings.TrimSpace(entry.Title) != "" {
		return nil
	}
	info, err := s.extractor.GetInfo(ctx, sourceURL)
	if err != nil || info == nil {
		return nil
	}
	if info.Title == "" {
		return info
	}
	desc := entry.Description
	if desc == nil && info.Description != "" {
		desc = &info.Description
	}
	if err := s.store.UpdateEntryMetadata(ctx, entry.ID, info.Title, desc); err != nil {
		slog.Warn("metadata backfill failed",
			slog.String("entry_id", db.UUIDString(entry.ID)),
			slog.String("error", err.Error()))
	}
	return info
}

// commit hashes an acquired payload and binds the entry to a media artifact:
// either a fresh one or, when the hash already exists, the committed one.
func (s *Service) commit(ctx context.Context, entry *db.LibraryEntry, p *payload) error {
	hash := fingerprint.Hash(p.data)

	// Same content already in this user's library under another entry: this
	// one becomes a transient duplicate marker.
	existing, err := s.store.FindUserEntryByHash(ctx, hash, entry.UserID)
	if err != nil {
		return err
	}
	if existing != nil && existing.MediaArtifactID.Valid && !sameUUID(existing.ID, entry.ID) {
		return s.linkExisting(ctx, entry.ID, existing.MediaArtifactID, true)
	}

	finalPath := mediastore.ArtifactPath(hash, p.ext)
	if p.fromPath != "" {
		err = s.files.Move(p.fromPath, finalPath)
	} else {
		err = s.files.Write(finalPath, p.data)
	}
	if err != nil {
		return err
	}

	artifact, created, err := s.store.InsertArtifact(ctx, &db.InsertArtifactParams{
		FileHash:        hash,
		FilePath:        finalPath,
		MimeType:        p.mime,
		Filesize:        int64(len(p.data)),
		DurationSeconds: p.durationSeconds,
		SourceURL:       entry.SourceURL,
		UserID:          entry.UserID,
	})
	if err != nil {
		return err
	}
	if created {
		return s.store.CompleteEntry(ctx, &db.CompleteEntryParams{
			ID:              entry.ID,
			MediaArtifactID: artifact.ID,
			IsDuplicate:     false,
		})
	}

	// The hash was committed first by a concurrent or earlier ingestion. Drop
	// our copy if it landed beside the canonical file, record our URL on the
	// artifact if it has none, and flag the entry as a duplicate.
	if artifact.FilePath != finalPath {
		s.files.Delete(finalPath)
	}
	if entry.SourceURL != nil {
		if err := s.store.BackfillArtifactSourceURL(ctx, artifact.ID, *entry.SourceURL); err != nil {
			return err
		}
	}
	return s.linkExisting(ctx, entry.ID, artifact.ID, true)
}

// dropJobScratch removes staged upload bytes for a job that will never run.
func (s *Service) dropJobScratch(job *db.IngestJob) {
	if job.UploadPath != nil {
		s.files.Delete(*job.UploadPath)
	}
}

func failureMessage(sourceType db.SourceType, err error) string {
	if sourceType == db.SourceTypeYouTube {
		return "YouTube processing failed: " + err.Error()
	}
	return "Processing failed: " + err.Error()
}

func extFromName(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ext == "" {
		return "mp3"
	}
	return strings.ToLower(ext)
}

func extFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || path.Ext(u.Path) == "" {
		return "mp3"
	}
	return extFromName(u.Path)
}
