package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps uploaded PDFs under one directory, named by content hash
// so identical uploads share a file.
type FileStore struct {
	dir string
}

// NewFileStore creates the upload directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// PathFor returns where data with the given hash is stored
func (s *FileStore) PathFor(hash string) string {
	return filepath.Join(s.dir, hash+".pdf")
}

// Save writes data as <hash>.pdf unless that file already exists
func (s *FileStore) Save(hash string, data []byte) (string, error) {
	path := s.PathFor(hash)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}

// Read loads a stored file. Paths outside the store are refused.
func (s *FileStore) Read(path string) ([]byte, error) {
	if !s.owns(path) {
		return nil, fmt.Errorf("path %q is outside the upload dir", path)
	}
	return os.ReadFile(path)
}

// Remove deletes a stored file; a missing file is not an error
func (s *FileStore) Remove(path string) error {
	if !s.owns(path) {
		return fmt.Errorf("path %q is outside the upload dir", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) owns(path string) bool {
	rel, err := filepath.Rel(s.dir, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// FileHash is the hex SHA-256 of an upload's bytes
func FileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TextHash fingerprints extracted URL content: the normalized text joined
// with the source url and title.
func TextHash(text, url, title string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha256.Sum256([]byte(normalized + "|" + url + "|" + title))
	return hex.EncodeToString(sum[:])
}
