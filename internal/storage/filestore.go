package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"papervault/internal/constants"
	"papervault/internal/sanitize"
)

// FileStore is a BlobStore backed by a local directory. It is the default
// backend for single-node deployments and tests.
type FileStore struct {
	root string
}

// NewFileStore creates the blob directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, constants.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// path validates the key and maps it to a file path. Keys are opaque
// identifiers generated by the application, but reject traversal anyway.
func (s *FileStore) path(key string) (string, error) {
	if key == "" || sanitize.IsPathTraversal(key) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

func (s *FileStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if written != size {
		os.Remove(tmpName)
		return fmt.Errorf("short write for blob %s: got %d bytes, want %d", key, written, size)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize blob %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	return f, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
