// Package fsstore is the Filesystem Sink: it mirrors remote relative paths
// onto disk beneath an output directory, creating intermediate
// directories as needed and short-circuiting on files that already exist.
package fsstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const chunkSize = 4096

// Store roots every path at dir.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// AbsPath resolves a remote-relative path to its on-disk location.
func (s *Store) AbsPath(relPath string) string {
	return filepath.Join(s.Dir, relPath)
}

// Exists reports whether relPath has already been fetched.
func (s *Store) Exists(relPath string) bool {
	_, err := os.Stat(s.AbsPath(relPath))
	return err == nil
}

// EnsureParentDir creates the parent directory of relPath if it does not
// already exist. A race with another worker creating the same directory
// is tolerated.
func (s *Store) EnsureParentDir(relPath string) error {
	dir := filepath.Dir(s.AbsPath(relPath))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("fsstore: create intermediate dirs for %s: %w", relPath, err)
	}
	return nil
}

// WriteStream copies r to relPath in chunkSize-byte chunks, matching the
// byte-for-byte streaming the core design calls for on binary responses.
func (s *Store) WriteStream(relPath string, r io.Reader) error {
	if err := s.EnsureParentDir(relPath); err != nil {
		return err
	}

	f, err := os.Create(s.AbsPath(relPath))
	if err != nil {
		return fmt.Errorf("fsstore: create %s: %w", relPath, err)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(f, r, buf); err != nil {
		return fmt.Errorf("fsstore: write %s: %w", relPath, err)
	}
	return nil
}

// WriteString writes whole text content to relPath, used for the textual
// responses fetched by FindRefsWorker.
func (s *Store) WriteString(relPath, content string) error {
	if err := s.EnsureParentDir(relPath); err != nil {
		return err
	}
	if err := os.WriteFile(s.AbsPath(relPath), []byte(content), 0o644); err != nil {
		return fmt.Errorf("fsstore: write %s: %w", relPath, err)
	}
	return nil
}

// ReadString reads back a previously written text file, used by
// FindRefsWorker's already-fetched short-circuit.
func (s *Store) ReadString(relPath string) (string, error) {
	b, err := os.ReadFile(s.AbsPath(relPath))
	if err != nil {
		return "", fmt.Errorf("fsstore: read %s: %w", relPath, err)
	}
	return string(b), nil
}
