package ytdlp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type execRecorder struct {
	name string
	args []string
}

func fakeExec(rec *execRecorder, stdout string, err error) func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		rec.name = name
		rec.args = args
		return []byte(stdout), nil, err
	}
}

func TestExtractAudio_ArgumentAssembly(t *testing.T) {
	var rec execRecorder
	c := New()
	c.execFn = fakeExec(&rec, "", nil)

	err := c.ExtractAudio(context.Background(), "https://youtu.be/ggLajT7aMMk", "/tmp/scratch/audio.%(ext)s")
	require.NoError(t, err)
	require.Equal(t, "yt-dlp", rec.name)
	require.Equal(t, []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-playlist",
		"--output", "/tmp/scratch/audio.%(ext)s",
		"https://youtu.be/ggLajT7aMMk",
	}, rec.args)
}

func TestExtractAudio_RequiresURLAndTemplate(t *testing.T) {
	c := New()
	require.Error(t, c.ExtractAudio(context.Background(), "", "/tmp/audio.%(ext)s"))
	require.Error(t, c.ExtractAudio(context.Background(), "https://youtu.be/x", ""))
}

func TestExtractAudio_WrapsFailure(t *testing.T) {
	var rec execRecorder
	c := New()
	c.execFn = fakeExec(&rec, "", errors.New("boom"))

	err := c.ExtractAudio(context.Background(), "https://youtu.be/x", "/tmp/audio.%(ext)s")
	require.Error(t, err)

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "yt-dlp", execErr.Cmd)
}

func TestGetInfo_ParsesJSON(t *testing.T) {
	var rec execRecorder
	c := New()
	c.execFn = fakeExec(&rec, `{"id":"abc123","title":"A Talk","description":"notes","duration":61.5}`, nil)

	info, err := c.GetInfo(context.Background(), "https://youtube.com/watch?v=abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", info.ID)
	require.Equal(t, "A Talk", info.Title)
	require.Equal(t, "notes", info.Description)
	require.InDelta(t, 61.5, info.Duration, 0.001)
	require.Equal(t, []string{"--dump-json", "--no-playlist", "https://youtube.com/watch?v=abc123"}, rec.args)
}

func TestGetInfo_BadJSON(t *testing.T) {
	var rec execRecorder
	c := New()
	c.execFn = fakeExec(&rec, "not json", nil)

	_, err := c.GetInfo(context.Background(), "https://youtube.com/watch?v=abc123")
	require.Error(t, err)
}

func TestClient_ExtraArgsPrepended(t *testing.T) {
	var rec execRecorder
	c := New()
	c.ExtraArgs = []string{"--force-ipv4"}
	c.execFn = fakeExec(&rec, "2026.01.01", nil)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2026.01.01", v)
	require.Equal(t, []string{"--force-ipv4", "--version"}, rec.args)
}
