package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHash_KnownVector(t *testing.T) {
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		Hash([]byte("abc")))
}

func TestHash_EmptyInput(t *testing.T) {
	require.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Hash(nil))
	require.Equal(t, Hash(nil), Hash([]byte{}))
}

func TestHash_Deterministic(t *testing.T) {
	p := []byte("the same payload hashed twice")
	require.Equal(t, Hash(p), Hash(p))
}

func TestHashFile_MatchesHash(t *testing.T) {
	payload := []byte("RIFF....WAVEfmt some fake wav content")
	path := filepath.Join(t.TempDir(), "sample.wav")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	got, err := HashFile(path)
	require.NoError(t, err)
	require.Equal(t, Hash(payload), got)
}

func TestHashFile_Missing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope.mp3"))
	require.Error(t, err)
}
