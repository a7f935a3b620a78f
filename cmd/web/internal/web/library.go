package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"

	"podforge.systems/podforge/internal/db"
	"podforge.systems/podforge/internal/ingest"
)

// userIDHeader identifies the acting user. Authentication proper sits in
// front of this service; the facade only needs a stable identity.
const userIDHeader = "X-User-ID"

type createEntryRequest struct {
	Title       string `json:"title" form:"title" validate:"max=255"`
	Description string `json:"description" form:"description" validate:"max=4096"`
	SourceType  string `json:"source_type" form:"source_type" validate:"required,oneof=upload url youtube"`
	URL         string `json:"url" form:"url" validate:"omitempty,url"`
}

type entryResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	SourceType  string         `json:"source_type"`
	SourceURL   *string        `json:"source_url,omitempty"`
	Status      string         `json:"status"`
	StatusLabel string         `json:"status_label"`
	IsDuplicate bool           `json:"is_duplicate"`
	Error       *string        `json:"error,omitempty"`
	Media       *mediaResponse `json:"media,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DuplicateAt *time.Time     `json:"duplicate_detected_at,omitempty"`
}

type mediaResponse struct {
	Hash            string `json:"hash"`
	Path            string `json:"path"`
	MimeType        string `json:"mime_type"`
	SizeBytes       int64  `json:"size_bytes"`
	Size            string `json:"size"`
	DurationSeconds *int32 `json:"duration_seconds,omitempty"`
}

type createEntryResponse struct {
	Entry   entryResponse `json:"entry"`
	Message string        `json:"message"`
}

func (s *Webserver) createLibraryEntry(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.actingUser(c)
	if err != nil {
		return err
	}

	var req createEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	params := &ingest.SubmitParams{
		UserID:     userID,
		Title:      strings.TrimSpace(req.Title),
		SourceType: db.SourceType(req.SourceType),
		SourceURL:  strings.TrimSpace(req.URL),
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		params.Description = &desc
	}

	if params.SourceType == db.SourceTypeUpload {
		file, err := c.FormFile("file")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "upload requires a file")
		}
		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("open upload: %w", err)
		}
		defer src.Close()
		data, err := io.ReadAll(src)
		if err != nil {
			return fmt.Errorf("read upload: %w", err)
		}
		params.UploadFilename = file.Filename
		params.UploadData = data
		if params.Title == "" {
			params.Title = file.Filename
		}
	} else if params.SourceURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}

	res, err := s.ingest.Submit(ctx, params)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	return c.JSON(http.StatusCreated, createEntryResponse{
		Entry:   s.entryResponse(c, res.Entry),
		Message: res.Message,
	})
}

func (s *Webserver) listLibraryEntries(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.actingUser(c)
	if err != nil {
		return err
	}

	entries, err := s.dbc.Queries(ctx).ListEntriesForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, s.entryResponse(c, entry))
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": out})
}

func (s *Webserver) showLibraryEntry(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.actingUser(c)
	if err != nil {
		return err
	}
	entryID, err := db.ParseUUID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}

	entry, err := s.dbc.Queries(ctx).GetEntry(ctx, entryID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	if entry.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "entry belongs to another user")
	}
	return c.JSON(http.StatusOK, s.entryResponse(c, entry))
}

// serveLibraryEntryMedia streams the committed artifact behind an entry.
func (s *Webserver) serveLibraryEntryMedia(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.actingUser(c)
	if err != nil {
		return err
	}
	entryID, err := db.ParseUUID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}

	entry, err := s.dbc.Queries(ctx).GetEntry(ctx, entryID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	if entry.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "entry belongs to another user")
	}
	if !entry.MediaArtifactID.Valid {
		return echo.NewHTTPError(http.StatusNotFound, "entry has no media yet")
	}

	artifact, err := s.dbc.Queries(ctx).GetArtifact(ctx, entry.MediaArtifactID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "media artifact not found")
	}
	if !s.files.Exists(artifact.FilePath) {
		return echo.NewHTTPError(http.StatusNotFound, "media file missing from storage")
	}

	c.Response().Header().Set(echo.HeaderContentType, artifact.MimeType)
	return c.File(s.files.Abs(artifact.FilePath))
}

func (s *Webserver) deleteLibraryEntry(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := s.actingUser(c)
	if err != nil {
		return err
	}
	entryID, err := db.ParseUUID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entry id")
	}

	switch err := s.ingest.Remove(ctx, entryID, userID); {
	case errors.Is(err, ingest.ErrEntryNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	case errors.Is(err, ingest.ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, "entry belongs to another user")
	case err != nil:
		return fmt.Errorf("delete entry: %w", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// actingUser resolves the requesting user from the identity header and makes
// sure the FK target row exists.
func (s *Webserver) actingUser(c echo.Context) (pgtype.UUID, error) {
	raw := strings.TrimSpace(c.Request().Header.Get(userIDHeader))
	if raw == "" {
		return pgtype.UUID{}, echo.NewHTTPError(http.StatusUnauthorized, userIDHeader+" header is required")
	}
	userID, err := db.ParseUUID(raw)
	if err != nil {
		return pgtype.UUID{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid "+userIDHeader+" header")
	}

	ctx := c.Request().Context()
	username := "user-" + raw[:8]
	if err := s.dbc.Queries(ctx).EnsureUser(ctx, userID, username); err != nil {
		return pgtype.UUID{}, fmt.Errorf("ensure user: %w", err)
	}
	return userID, nil
}

func (s *Webserver) entryResponse(c echo.Context, entry *db.LibraryEntry) entryResponse {
	resp := entryResponse{
		ID:          db.UUIDString(entry.ID),
		Title:       entry.Title,
		Description: entry.Description,
		SourceType:  string(entry.SourceType),
		SourceURL:   entry.SourceURL,
		Status:      string(entry.ProcessingStatus),
		StatusLabel: entry.ProcessingStatus.DisplayName(),
		IsDuplicate: entry.IsDuplicate,
		Error:       entry.ProcessingError,
		CreatedAt:   entry.CreatedAt.Time,
		CompletedAt: db.NilTimePtr(entry.ProcessingCompletedAt),
		DuplicateAt: db.NilTimePtr(entry.DuplicateDetectedAt),
	}

	if entry.MediaArtifactID.Valid {
		ctx := c.Request().Context()
		artifact, err := s.dbc.Queries(ctx).GetArtifact(ctx, entry.MediaArtifactID)
		if err == nil {
			resp.Media = &mediaResponse{
				Hash:            artifact.FileHash,
				Path:            artifact.FilePath,
				MimeType:        artifact.MimeType,
				SizeBytes:       artifact.Filesize,
				Size:            humanize.Bytes(uint64(artifact.Filesize)),
				DurationSeconds: artifact.DurationSeconds,
			}
		}
	}
	return resp
}
