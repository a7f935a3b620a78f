// Package mediastore is the content-addressed file store behind the ingestion
// pipeline. Committed artifacts live under media/<hex-hash>.<ext>; in-flight
// acquisitions use per-attempt scratch paths under temp prefixes that are
// removed on every exit path.
package mediastore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	mediaPrefix      = "media"
	tempUploadPrefix = "temp-uploads"
	tempTubePrefix   = "temp-youtube"
)

// Store manages payload files under a single root directory.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("mediastore: root is required")
	}
	for _, dir := range []string{mediaPrefix, tempUploadPrefix, tempTubePrefix} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("mediastore: create %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// ArtifactPath derives the canonical logical path for a committed artifact.
func ArtifactPath(hash string, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	return mediaPrefix + "/" + hash + "." + ext
}

// Abs resolves a logical path to an absolute filesystem path.
func (s *Store) Abs(logical string) string {
	return filepath.Join(s.root, filepath.FromSlash(logical))
}

// Write persists p at the logical path, creating parent directories.
func (s *Store) Write(logical string, p []byte) error {
	abs := s.Abs(logical)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("mediastore: mkdir for %s: %w", logical, err)
	}
	if err := os.WriteFile(abs, p, 0o644); err != nil {
		return fmt.Errorf("mediastore: write %s: %w", logical, err)
	}
	return nil
}

// Read returns the full content at the logical path.
func (s *Store) Read(logical string) ([]byte, error) {
	p, err := os.ReadFile(s.Abs(logical))
	if err != nil {
		return nil, fmt.Errorf("mediastore: read %s: %w", logical, err)
	}
	return p, nil
}

// Exists reports whether a file is present at the logical path.
func (s *Store) Exists(logical string) bool {
	info, err := os.Stat(s.Abs(logical))
	return err == nil && !info.IsDir()
}

// Size returns the byte size of the file at the logical path, or 0 when the
// file is missing.
func (s *Store) Size(logical string) int64 {
	info, err := os.Stat(s.Abs(logical))
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

// Move relocates a file between logical paths. Falls back to copy+remove when
// rename crosses filesystems.
func (s *Store) Move(from string, to string) error {
	src, dst := s.Abs(from), s.Abs(to)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mediastore: mkdir for %s: %w", to, err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("mediastore: move %s -> %s: %w", from, to, err)
	}
	return os.Remove(src)
}

// Delete removes the file at the logical path. Missing files are not errors.
func (s *Store) Delete(logical string) error {
	err := os.Remove(s.Abs(logical))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("mediastore: delete %s: %w", logical, err)
	}
	return nil
}

// NewTempUploadPath returns a unique scratch path for one in-flight payload.
// base carries the original filename hint (it is reduced to its final path
// element).
func (s *Store) NewTempUploadPath(base string) string {
	base = filepath.Base(strings.TrimSpace(base))
	if base == "" || base == "." || base == "/" {
		base = "download"
	}
	return tempUploadPrefix + "/" + uuid.NewString() + "_" + base
}

// NewScratchDir creates a unique directory for one extraction attempt and
// returns its logical path.
func (s *Store) NewScratchDir() (string, error) {
	logical := tempTubePrefix + "/" + uuid.NewString()
	if err := os.MkdirAll(s.Abs(logical), 0o755); err != nil {
		return "", fmt.Errorf("mediastore: create scratch dir: %w", err)
	}
	return logical, nil
}

// RemoveDir recursively removes a scratch directory.
func (s *Store) RemoveDir(logical string) error {
	if strings.TrimSpace(logical) == "" || logical == "." {
		return nil
	}
	return os.RemoveAll(s.Abs(logical))
}

// FindByBaseName locates a file inside dir whose name without extension
// matches base. The extraction tool picks the container, so the extension is
// unknown up front.
func (s *Store) FindByBaseName(dir string, base string) (string, bool) {
	entries, err := os.ReadDir(s.Abs(dir))
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == base {
			return dir + "/" + name, true
		}
	}
	return "", false
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
