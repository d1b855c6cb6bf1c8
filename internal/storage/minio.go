package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"dataroom/internal/domain"
)

const (
	objectPrefix = blobDirname + "/"
	// Unknown-length uploads are buffered one part at a time
	minioPartSize = 16 << 20
)

// MinIOConfig holds connection settings for an S3-compatible backend
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOStore keeps blobs as objects named blobs/<id> in a single bucket
type MinIOStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinIOStore connects to the endpoint and makes sure the bucket exists
func NewMinIOStore(ctx context.Context, cfg MinIOConfig, logger *slog.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	store := &MinIOStore{client: client, bucket: cfg.Bucket, logger: logger}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Put uploads r as a new object
func (m *MinIOStore) Put(ctx context.Context, r io.Reader) (BlobInfo, error) {
	storedID := uuid.NewString()
	objectName := objectPrefix + storedID

	info, err := m.client.PutObject(ctx, m.bucket, objectName, r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		PartSize:    minioPartSize,
	})
	if err != nil {
		m.logger.Error("minio upload failed", "object_name", objectName, "bucket", m.bucket, "error", err)
		return BlobInfo{}, fmt.Errorf("put object: %w", err)
	}

	m.logger.Debug("minio upload succeeded", "object_name", objectName, "size", info.Size, "bucket", m.bucket)
	return BlobInfo{StoredID: storedID, Size: info.Size, ModTime: info.LastModified}, nil
}

// Open returns a reader for the object
func (m *MinIOStore) Open(ctx context.Context, storedID string) (io.ReadCloser, error) {
	if err := validateStoredID(storedID); err != nil {
		return nil, err
	}
	objectName := objectPrefix + storedID

	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.translateError(err, storedID)
	}
	// GetObject is lazy; Stat surfaces a missing key
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, m.translateError(err, storedID)
	}
	return obj, nil
}

// Delete removes the object; S3 treats missing keys as success
func (m *MinIOStore) Delete(ctx context.Context, storedID string) error {
	if err := validateStoredID(storedID); err != nil {
		return err
	}
	objectName := objectPrefix + storedID

	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		m.logger.Error("minio delete failed", "object_name", objectName, "bucket", m.bucket, "error", err)
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

// Walk lists every object under the blob prefix
func (m *MinIOStore) Walk(ctx context.Context, fn func(BlobInfo) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    objectPrefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("list objects: %w", obj.Err)
		}
		storedID := strings.TrimPrefix(obj.Key, objectPrefix)
		if validateStoredID(storedID) != nil {
			continue
		}
		if err := fn(BlobInfo{StoredID: storedID, Size: obj.Size, ModTime: obj.LastModified}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MinIOStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	m.logger.Info("minio bucket created", "bucket", m.bucket)
	return nil
}

func (m *MinIOStore) translateError(err error, storedID string) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return &domain.NotFoundError{Message: fmt.Sprintf("blob %s not found", storedID)}
	}
	return fmt.Errorf("get object %s: %w", storedID, err)
}
