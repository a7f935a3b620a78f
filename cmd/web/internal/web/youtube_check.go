package web

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"podforge.systems/podforge/internal/youtube"
)

type youtubeCheckResponse struct {
	Valid    bool   `json:"valid"`
	VideoID  string `json:"video_id,omitempty"`
	WatchURL string `json:"watch_url,omitempty"`

	// Best-effort oEmbed metadata; absent when the lookup fails.
	Title        string `json:"title,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// checkYouTubeURL lets clients validate a YouTube URL and preview its
// metadata before submitting it for ingestion.
func (s *Webserver) checkYouTubeURL(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("url"))
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url query parameter is required")
	}

	videoID, err := youtube.ExtractVideoID(raw)
	if err != nil {
		return c.JSON(http.StatusOK, youtubeCheckResponse{Valid: false})
	}

	resp := youtubeCheckResponse{
		Valid:    true,
		VideoID:  videoID,
		WatchURL: youtube.WatchURL(videoID),
	}
	if info := s.oembed.GetVideoInfo(c.Request().Context(), videoID); info != nil {
		resp.Title = info.Title
		resp.AuthorName = info.AuthorName
		resp.ThumbnailURL = info.ThumbnailURL
	}
	return c.JSON(http.StatusOK, resp)
}
