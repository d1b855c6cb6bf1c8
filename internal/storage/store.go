package storage

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored blob
type BlobInfo struct {
	StoredID string
	Size     int64
	ModTime  time.Time
}

// BlobStore persists opaque byte streams under generated keys.
// Keys are never reused and Put never overwrites an existing blob.
type BlobStore interface {
	// Put streams r into a new blob and returns its key and byte count
	Put(ctx context.Context, r io.Reader) (BlobInfo, error)

	// Open returns a reader for the blob. Missing blobs yield domain.ErrNotFound.
	Open(ctx context.Context, storedID string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing blob succeeds.
	Delete(ctx context.Context, storedID string) error

	// Walk calls fn for every stored blob until fn returns an error
	Walk(ctx context.Context, fn func(BlobInfo) error) error
}
