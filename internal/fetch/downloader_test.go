package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mp3Payload is long enough to be classified and starts with an ID3 tag.
func mp3Payload() []byte {
	p := []byte("ID3")
	for len(p) < 256 {
		p = append(p, 0x42)
	}
	return p
}

func TestDownload_Success(t *testing.T) {
	payload := mp3Payload()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	got, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL+"/a.mp3")
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestDownload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL+"/missing.mp3")
	require.EqualError(t, err, "Failed to download file: HTTP 404")
}

func TestDownload_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL)
	require.EqualError(t, err, "Downloaded file is empty")
}

func TestDownload_ScriptRedirectToRealFile(t *testing.T) {
	payload := mp3Payload()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/a.mp3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<!DOCTYPE html><html><head><script>window.location.replace('%s/real.mp3')</script></head></html>`, srv.URL)
	})
	mux.HandleFunc("/real.mp3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})

	got, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL+"/a.mp3")
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestDownload_HrefReplacePattern(t *testing.T) {
	payload := mp3Payload()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/page/a.mp3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>window.location.href.replace('/page/', '/files/')</script></html>`))
	})
	mux.HandleFunc("/files/a.mp3", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})

	got, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL+"/page/a.mp3")
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestDownload_HTMLWithoutRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>not a media file</body></html>`))
	}))
	defer srv.Close()

	_, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL)
	require.EqualError(t, err, "Download failed: Got HTML content instead of media file")
}

func TestDownload_RedirectTargetAlsoHTML(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>window.location.replace('/b')</script></html>`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>still html</body></html>`))
	})

	_, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL+"/a")
	require.EqualError(t, err, "Download failed: Got HTML redirect page instead of media file")
}

func TestDownload_UnknownBinaryRejected(t *testing.T) {
	junk := make([]byte, 512)
	for i := range junk {
		junk[i] = byte(i % 7)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(junk)
	}))
	defer srv.Close()

	_, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL)
	require.EqualError(t, err, "Download failed: Content does not appear to be a valid audio file")
}

func TestMakeAbsoluteURL(t *testing.T) {
	require.Equal(t, "https://x/real.mp3", makeAbsoluteURL("https://x/real.mp3", "https://y/page"))
	require.Equal(t, "https://x/real.mp3", makeAbsoluteURL("/real.mp3", "https://x/dir/page.html"))
	require.Equal(t, "https://x/dir/real.mp3", makeAbsoluteURL("real.mp3", "https://x/dir/page.html"))
}

func TestExtractScriptRedirect_IgnoresNonScriptText(t *testing.T) {
	html := []byte(`<html><body><p>window.location.replace('https://x/fake.mp3')</p></body></html>`)
	_, ok := extractScriptRedirect(html, "https://x/a")
	require.False(t, ok)
}
