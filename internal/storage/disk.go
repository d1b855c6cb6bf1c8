package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"dataroom/internal/domain"
)

const (
	blobDirname = "blobs"
	tmpDirname  = ".tmp"
)

// DiskStore keeps blobs as files under root/blobs/aa/bb/<id>
type DiskStore struct {
	root   string
	logger *slog.Logger
}

// NewDiskStore creates a disk-backed blob store rooted at root
func NewDiskStore(root string, logger *slog.Logger) (*DiskStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("blob store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{filepath.Join(abs, blobDirname), filepath.Join(abs, tmpDirname)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiskStore{root: abs, logger: logger}, nil
}

// Put writes r to a temp file, then links it into place under a fresh ID
func (s *DiskStore) Put(ctx context.Context, r io.Reader) (BlobInfo, error) {
	var zero BlobInfo
	if r == nil {
		return zero, fmt.Errorf("reader is required")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDirname), "put-*")
	if err != nil {
		return zero, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	// The temp file is always removed; on success the blob lives on through its hard link
	defer func() { _ = os.Remove(tmpPath) }()

	n, err := io.Copy(tmp, &contextReader{ctx: ctx, r: r})
	if err != nil {
		_ = tmp.Close()
		return zero, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return zero, fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return zero, fmt.Errorf("close blob: %w", err)
	}

	storedID := uuid.NewString()
	dst := s.pathFor(storedID)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return zero, fmt.Errorf("create shard dir: %w", err)
	}
	// Link fails if dst exists, so a blob is never overwritten
	if err := os.Link(tmpPath, dst); err != nil {
		return zero, fmt.Errorf("commit blob: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return zero, fmt.Errorf("stat blob: %w", err)
	}

	s.logger.Debug("blob stored", "stored_id", storedID, "size", n)
	return BlobInfo{StoredID: storedID, Size: n, ModTime: info.ModTime()}, nil
}

// Open returns a reader for the blob
func (s *DiskStore) Open(ctx context.Context, storedID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateStoredID(storedID); err != nil {
		return nil, err
	}

	f, err := os.Open(s.pathFor(storedID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("blob %s not found", storedID)}
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Delete removes the blob and any shard directories left empty
func (s *DiskStore) Delete(ctx context.Context, storedID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateStoredID(storedID); err != nil {
		return err
	}

	path := s.pathFor(storedID)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", storedID, err)
	}

	s.cleanupEmptyDirs(filepath.Dir(path))
	return nil
}

// Walk visits every committed blob
func (s *DiskStore) Walk(ctx context.Context, fn func(BlobInfo) error) error {
	blobsDir := filepath.Join(s.root, blobDirname)

	return filepath.WalkDir(blobsDir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if validateStoredID(d.Name()) != nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		return fn(BlobInfo{StoredID: d.Name(), Size: info.Size(), ModTime: info.ModTime()})
	})
}

// pathFor shards by the first two byte pairs of the ID
func (s *DiskStore) pathFor(storedID string) string {
	return filepath.Join(s.root, blobDirname, storedID[0:2], storedID[2:4], storedID)
}

// cleanupEmptyDirs removes empty shard directories up to the blobs root
func (s *DiskStore) cleanupEmptyDirs(dir string) {
	blobsDir := filepath.Join(s.root, blobDirname)
	for dir != blobsDir && strings.HasPrefix(dir, blobsDir) {
		if err := os.Remove(dir); err != nil {
			// Not empty, or already gone
			return
		}
		dir = filepath.Dir(dir)
	}
}

// validateStoredID accepts only generated UUID keys, which also rules out path traversal
func validateStoredID(storedID string) error {
	if _, err := uuid.Parse(storedID); err != nil || len(storedID) != 36 {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid stored id %q", storedID)}
	}
	return nil
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
