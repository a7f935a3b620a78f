package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractVideoID_AcceptedPatterns(t *testing.T) {
	tests := []struct {
		url string
		id  string
	}{
		{"https://www.youtube.com/watch?v=ggLajT7aMMk", "ggLajT7aMMk"},
		{"http://youtube.com/watch?v=abc_123-XYZ", "abc_123-XYZ"},
		{"https://m.youtube.com/watch?v=ggLajT7aMMk&t=42", "ggLajT7aMMk"},
		{"https://www.youtube.com/embed/ggLajT7aMMk", "ggLajT7aMMk"},
		{"https://youtu.be/ggLajT7aMMk", "ggLajT7aMMk"},
		{"https://youtu.be/ggLajT7aMMk?t=120", "ggLajT7aMMk"},
		{"https://www.youtube.com/shorts/ggLajT7aMMk", "ggLajT7aMMk"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			id, err := ExtractVideoID(tt.url)
			require.NoError(t, err)
			require.Equal(t, tt.id, id)
			require.True(t, IsValidURL(tt.url))
		})
	}
}

func TestExtractVideoID_Rejected(t *testing.T) {
	for _, raw := range []string{
		"",
		"not a url",
		"https://vimeo.com/12345",
		"https://www.youtube.com/",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/channel/UCabc",
		"ftp://youtube.com/watch?v=abc",
		"https://notyoutube.com/watch?v=abc",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ExtractVideoID(raw)
			require.ErrorIs(t, err, ErrNotYouTubeURL)
			require.False(t, IsValidURL(raw))
		})
	}
}

func TestWatchURL(t *testing.T) {
	require.Equal(t, "https://www.youtube.com/watch?v=ggLajT7aMMk", WatchURL("ggLajT7aMMk"))
}

func TestGetVideoInfo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "https://www.youtube.com/watch?v=abc123", r.URL.Query().Get("url"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"A Video","author_name":"Someone","thumbnail_url":"https://i.ytimg.com/t.jpg"}`))
	}))
	defer srv.Close()

	c := NewInfoClient()
	c.Endpoint = srv.URL

	info := c.GetVideoInfo(context.Background(), "abc123")
	require.NotNil(t, info)
	require.Equal(t, "A Video", info.Title)
	require.Equal(t, "Someone", info.AuthorName)
}

func TestGetVideoInfo_FailureIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewInfoClient()
	c.Endpoint = srv.URL
	require.Nil(t, c.GetVideoInfo(context.Background(), "abc123"))
}
