package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultOEmbedEndpoint = "https://www.youtube.com/oembed"

// VideoInfo is the subset of oEmbed metadata surfaced to clients.
type VideoInfo struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// InfoClient fetches video metadata from YouTube's oEmbed endpoint, which
// needs no API key.
type InfoClient struct {
	// Endpoint overrides the oEmbed URL; used by tests.
	Endpoint string

	client *http.Client
}

func NewInfoClient() *InfoClient {
	return &InfoClient{
		Endpoint: defaultOEmbedEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// GetVideoInfo looks up oEmbed metadata for a video id. Lookup failures are
// reported as a nil result, not an error: metadata is strictly best-effort.
func (c *InfoClient) GetVideoInfo(ctx context.Context, videoID string) *VideoInfo {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultOEmbedEndpoint
	}

	q := url.Values{}
	q.Set("url", WatchURL(videoID))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		slog.Error("failed to build oembed request", "video_id", videoID, "error", err)
		return nil
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		slog.Error("failed to fetch video info", "video_id", videoID, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("oembed lookup returned non-OK status", "video_id", videoID, "status", resp.StatusCode)
		return nil
	}

	var info VideoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		slog.Error("failed to decode oembed response", "video_id", videoID, "error", fmt.Errorf("decode: %w", err))
		return nil
	}
	return &info
}

func (c *InfoClient) httpClient() *http.Client {
	if c.client == nil {
		c.client = &http.Client{Timeout: 10 * time.Second}
	}
	return c.client
}
