// Package storage persists paper PDFs. Metadata lives in SQLite; this
// package only handles the raw bytes, keyed by an opaque blob key.
package storage

import (
	"context"
	"io"
)

// BlobStore stores and retrieves paper files by key.
type BlobStore interface {
	// Put writes the object under key. Size must be the exact byte count.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns a reader for the object. The caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
