package ytdlp

import (
	"context"
	"fmt"
	"strings"
)

// ExtractAudio pulls the best-quality audio track for url into outputTemplate.
//
// outputTemplate is a yt-dlp -o template, typically
// "<scratchDir>/audio.%(ext)s" so the produced file can be located by base
// name regardless of the container yt-dlp settles on. Playlist expansion is
// always disabled; one submission maps to one payload.
func (c *Client) ExtractAudio(ctx context.Context, url string, outputTemplate string, extraArgs ...string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("ytdlp: url is required")
	}
	if strings.TrimSpace(outputTemplate) == "" {
		return fmt.Errorf("ytdlp: output template is required")
	}

	args := []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-playlist",
		"--output", outputTemplate,
	}
	args = append(args, extraArgs...)
	args = append(args, url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}
	return nil
}
