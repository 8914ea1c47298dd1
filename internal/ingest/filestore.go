package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the original uploaded documents on disk under
// <dataDir>/files/<documentID><ext>, so re-downloads and re-ingestion do
// not depend on the client keeping the source file around.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dataDir string) (*FileStore, error) {
	dir := filepath.Join(dataDir, "files")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating file store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save stores the original bytes under the document ID, keeping the
// source extension. A previous file for the same document is replaced,
// even when its extension differed.
func (fs *FileStore) Save(documentID, filename string, data []byte) (string, error) {
	if err := fs.Remove(documentID); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(fs.dir, documentID+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("saving original file: %w", err)
	}
	return path, nil
}

// Path returns the stored file path for the document, or an error when no
// file is stored.
func (fs *FileStore) Path(documentID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(fs.dir, documentID+".*"))
	if err != nil {
		return "", fmt.Errorf("locating stored file: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no stored file for document %s", documentID)
	}
	return matches[0], nil
}

// Open reads the stored original back.
func (fs *FileStore) Open(documentID string) (string, []byte, error) {
	path, err := fs.Path(documentID)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading stored file: %w", err)
	}
	return path, data, nil
}

// Remove deletes the stored original. A missing file is success.
func (fs *FileStore) Remove(documentID string) error {
	matches, err := filepath.Glob(filepath.Join(fs.dir, documentID+".*"))
	if err != nil {
		return fmt.Errorf("locating stored file: %w", err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing stored file: %w", err)
		}
	}
	return nil
}
