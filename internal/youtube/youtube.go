// Package youtube validates YouTube URLs, extracts stable video identifiers,
// and fetches best-effort metadata via the public oEmbed endpoint.
package youtube

import (
	"errors"
	"net/url"
	"strings"
)

// Accepted hosts. Conservative on purpose: only hosts that are truly YouTube
// from a user perspective.
var acceptedHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
}

// ErrNotYouTubeURL is returned when a URL matches none of the accepted
// hostname/path patterns (watch, embed, short-link, shorts).
var ErrNotYouTubeURL = errors.New("not a youtube url or video id not found")

// IsValidURL reports whether raw matches one of the accepted YouTube URL
// patterns.
func IsValidURL(raw string) bool {
	_, err := ExtractVideoID(raw)
	return err == nil
}

// ExtractVideoID returns the stable video identifier embedded in a YouTube
// URL. Accepted shapes: watch?v=ID, /embed/ID, youtu.be/ID, /shorts/ID.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotYouTubeURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrNotYouTubeURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrNotYouTubeURL
	}

	host := strings.ToLower(u.Hostname())
	if !acceptedHosts[host] {
		return "", ErrNotYouTubeURL
	}

	if host == "youtu.be" {
		if id := firstPathSegment(u.Path); validVideoID(id) {
			return id, nil
		}
		return "", ErrNotYouTubeURL
	}

	if id := u.Query().Get("v"); u.Path == "/watch" && validVideoID(id) {
		return id, nil
	}
	for _, prefix := range []string{"/embed/", "/shorts/"} {
		if strings.HasPrefix(u.Path, prefix) {
			if id := firstPathSegment(strings.TrimPrefix(u.Path, prefix)); validVideoID(id) {
				return id, nil
			}
		}
	}

	return "", ErrNotYouTubeURL
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

func firstPathSegment(p string) string {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	seg, _, _ := strings.Cut(p, "/")
	return seg
}

// validVideoID accepts the [\w-]+ identifier alphabet.
func validVideoID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
