// Package fetch downloads media payloads over HTTP for the ingestion
// pipeline: bounded redirect chains, signature validation, and recovery from
// script-based redirect pages that some file hosts serve instead of a proper
// 30x.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"podforge.systems/podforge/pkg/mediasig"
)

const (
	// maxRedirectHops bounds the server-side redirect chain.
	maxRedirectHops = 5

	defaultTimeout = 60 * time.Second
)

// Downloader fetches remote payloads and rejects anything that does not look
// like media.
type Downloader struct {
	client *http.Client
}

func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Downloader{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirectHops {
					return fmt.Errorf("stopped after %d redirects", maxRedirectHops)
				}
				return nil
			},
		},
	}
}

// Download fetches url and returns validated media bytes.
//
// When the body turns out to be an HTML page the downloader attempts to
// extract a client-side script redirect target and fetches that once more;
// a second HTML page (or an unfetchable target) is terminal. All returned
// errors carry the user-facing message recorded on the library entry.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	body, err := d.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	c := mediasig.Classify(body)
	if c.Kind == mediasig.KindHTML {
		target, ok := extractScriptRedirect(body, url)
		if !ok {
			return nil, errors.New("Download failed: Got HTML content instead of media file")
		}

		slog.Info("following script redirect", "from", url, "to", target)
		body, err = d.fetch(ctx, target)
		if err != nil || mediasig.Classify(body).Kind == mediasig.KindHTML {
			return nil, errors.New("Download failed: Got HTML redirect page instead of media file")
		}
		c = mediasig.Classify(body)
	}

	if !c.Accepted() {
		return nil, errors.New("Download failed: Content does not appear to be a valid audio file")
	}

	slog.Info("downloaded media payload", "url", url, "size", humanize.Bytes(uint64(len(body))), "mime", c.MIME)
	return body, nil
}

// fetch performs one GET and applies the status/empty-body policy.
func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("Download failed: %v", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Download failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("Failed to download file: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Download failed: %v", err)
	}
	if len(body) == 0 {
		return nil, errors.New("Downloaded file is empty")
	}
	return body, nil
}
