package mediasig

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func pad(prefix []byte, total int) []byte {
	p := append([]byte(nil), prefix...)
	for len(p) < total {
		p = append(p, 0xAB)
	}
	return p
}

func TestClassify_KnownSignatures(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		mime   string
	}{
		{"wav", []byte("RIFF"), "audio/wav"},
		{"ogg", []byte("OggS"), "audio/ogg"},
		{"flac", []byte("fLaC"), "audio/flac"},
		{"id3 mp3", []byte("ID3"), "audio/mpeg"},
		{"mp3 sync fb", []byte{0xFF, 0xFB}, "audio/mpeg"},
		{"mp3 sync f3", []byte{0xFF, 0xF3}, "audio/mpeg"},
		{"mp3 sync f2", []byte{0xFF, 0xF2}, "audio/mpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(pad(tt.prefix, 512))
			require.Equal(t, KindMedia, c.Kind)
			require.Equal(t, tt.mime, c.MIME)
			require.True(t, c.Accepted())
		})
	}
}

func TestClassify_MP4FtypBox(t *testing.T) {
	p := pad(append([]byte{0x00, 0x00, 0x00, 0x20}, []byte("ftypM4A ")...), 512)
	c := Classify(p)
	require.Equal(t, KindMedia, c.Kind)
	require.Equal(t, "audio/mp4", c.MIME)
}

func TestClassify_HTML(t *testing.T) {
	for _, body := range []string{
		"<!DOCTYPE html><html><body>redirecting</body></html>",
		"<html><head></head></html>",
		"\n  <!doctype html><html></html>",
	} {
		c := Classify(pad([]byte(body), 512))
		require.Equal(t, KindHTML, c.Kind, "payload %q", body)
		require.False(t, c.Accepted())
	}
}

func TestClassify_ShortContentIsInconclusive(t *testing.T) {
	c := Classify([]byte("tiny"))
	require.Equal(t, KindInconclusive, c.Kind)
	require.True(t, c.Accepted())

	c = Classify(bytes.Repeat([]byte{0x01}, 100))
	require.Equal(t, KindInconclusive, c.Kind)
}

func TestClassify_LongUnknownIsRejected(t *testing.T) {
	c := Classify(bytes.Repeat([]byte{0x01}, 101))
	require.Equal(t, KindUnknown, c.Kind)
	require.False(t, c.Accepted())
}

func TestClassify_EmptyInput(t *testing.T) {
	c := Classify(nil)
	require.Equal(t, KindInconclusive, c.Kind)
	require.Equal(t, DefaultMIME, c.MIME)
}

func TestDetectMIME_SignatureWins(t *testing.T) {
	require.Equal(t, "audio/flac", DetectMIME(pad([]byte("fLaC"), 256)))
}
