package dataroom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"dataroom/internal/config"
	"dataroom/internal/domain"
	models "dataroom/internal/domain/models/dataroom"
	dataroomSvc "dataroom/internal/domain/services/dataroom"
)

// UploadFile validates an upload, writes the blob, then records the row.
// Nothing is persisted when validation fails, and a failed row insert
// removes the blob it just wrote.
func (s *dataRoomService) UploadFile(ctx context.Context, req *dataroomSvc.UploadFileRequest) (*models.File, error) {
	displayName := req.Name
	if strings.TrimSpace(displayName) == "" {
		displayName = sanitizeFilename(req.Filename)
	}
	name, err := validateFileName(displayName)
	if err != nil {
		return nil, err
	}

	if req.Size > s.uploads.MaxBytes {
		return nil, s.tooLarge()
	}

	declared := config.NormalizeMimeType(req.DeclaredMimeType)
	undeclared := isGenericMimeType(declared)
	if !undeclared && !s.uploads.Allows(declared) {
		return nil, s.unsupported(declared)
	}

	head, err := readHead(req.Content, s.uploads.SniffBytes)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	detected := mimetype.Detect(head)
	sniffed, ok := s.sniffAllowed(detected)
	if !ok {
		s.logger.Debug("upload content rejected",
			"declared", declared,
			"detected", detected.String(),
		)
		return nil, s.unsupported(detected.String())
	}
	if undeclared {
		declared = sniffed
	}

	if err := s.ensureFileNameFree(ctx, name, req.FolderID); err != nil {
		return nil, err
	}

	// One byte past the limit is enough to prove the upload is oversized
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), req.Content), s.uploads.MaxBytes+1)
	info, err := s.blobs.Put(ctx, body)
	if err != nil {
		return nil, &domain.StorageFailureError{Message: "failed to store file content", Err: err}
	}
	if info.Size > s.uploads.MaxBytes {
		s.deleteBlob(ctx, info.StoredID, "reason", "oversized upload")
		return nil, s.tooLarge()
	}

	file := &models.File{
		Name:     name,
		FolderID: req.FolderID,
		MimeType: declared,
		Size:     info.Size,
		StoredID: info.StoredID,
	}
	if err := s.repo.CreateFile(ctx, file); err != nil {
		s.deleteBlob(ctx, info.StoredID, "reason", "file row insert failed")
		return nil, err
	}

	s.logger.Info("file uploaded",
		"id", file.ID,
		"name", file.Name,
		"folder_id", file.FolderID,
		"size", file.Size,
		"mime_type", file.MimeType,
	)
	return file, nil
}

// ensureFileNameFree checks the target folder exists and has no file called name
func (s *dataRoomService) ensureFileNameFree(ctx context.Context, name string, folderID *int64) error {
	if folderID != nil {
		if _, err := s.repo.GetFolder(ctx, *folderID); err != nil {
			return err
		}
	}

	existing, err := s.repo.FindFileByName(ctx, name, folderID)
	if err != nil {
		return fmt.Errorf("check for duplicate names: %w", err)
	}
	if existing != nil {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a file named '%s' already exists in this folder", name),
			ResourceType: "file",
			ResourceID:   existing.ID,
		}
	}
	return nil
}

// sniffAllowed matches the detected type, including its aliases, against the
// allow-list and returns the allow-list entry it matched
func (s *dataRoomService) sniffAllowed(detected *mimetype.MIME) (string, bool) {
	for _, allowed := range s.uploads.AllowedMimeTypes {
		if detected.Is(allowed) {
			return allowed, true
		}
	}
	return "", false
}

// isGenericMimeType reports whether the client sent no usable type.
// Such uploads are typed by their content alone.
func isGenericMimeType(mimeType string) bool {
	return mimeType == "" || mimeType == "application/octet-stream"
}

func (s *dataRoomService) tooLarge() error {
	return &domain.PayloadTooLargeError{
		Message:  fmt.Sprintf("file exceeds the maximum upload size of %d bytes", s.uploads.MaxBytes),
		MaxBytes: s.uploads.MaxBytes,
	}
}

func (s *dataRoomService) unsupported(mimeType string) error {
	if mimeType == "" {
		mimeType = "unknown"
	}
	return &domain.UnsupportedMediaTypeError{
		Message:  fmt.Sprintf("unsupported file type %s; allowed: %s", mimeType, strings.Join(s.uploads.AllowedMimeTypes, ", ")),
		MimeType: mimeType,
	}
}

// readHead reads up to n bytes; a short read just means a small file
func readHead(r io.Reader, n int) ([]byte, error) {
	if r == nil {
		return nil, &domain.ValidationError{Message: "file content is required"}
	}
	head := make([]byte, n)
	read, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return head[:read], nil
}
