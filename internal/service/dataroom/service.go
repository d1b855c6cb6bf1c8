package dataroom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dataroom/internal/config"
	"dataroom/internal/domain"
	models "dataroom/internal/domain/models/dataroom"
	"dataroom/internal/domain/repositories"
	dataroomRepo "dataroom/internal/domain/repositories/dataroom"
	dataroomSvc "dataroom/internal/domain/services/dataroom"
	"dataroom/internal/storage"
)

type dataRoomService struct {
	repo      dataroomRepo.TreeRepository
	blobs     storage.BlobStore
	txManager repositories.TransactionManager
	uploads   *config.UploadPolicy
	logger    *slog.Logger
	now       func() time.Time
}

// NewDataRoomService creates a new data room service
func NewDataRoomService(
	repo dataroomRepo.TreeRepository,
	blobs storage.BlobStore,
	txManager repositories.TransactionManager,
	uploads *config.UploadPolicy,
	logger *slog.Logger,
) dataroomSvc.DataRoomService {
	if logger == nil {
		logger = slog.Default()
	}
	return &dataRoomService{
		repo:      repo,
		blobs:     blobs,
		txManager: txManager,
		uploads:   uploads,
		logger:    logger,
		now:       time.Now,
	}
}

// Browse returns a folder's children and breadcrumb trail in one read transaction
func (s *dataRoomService) Browse(ctx context.Context, folderID *int64) (*dataroomSvc.FolderContents, error) {
	contents := &dataroomSvc.FolderContents{}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		chain, err := s.repo.AncestorChain(txCtx, folderID)
		if err != nil {
			return err
		}
		if len(chain) > 0 {
			parent := chain[len(chain)-1]
			contents.Parent = &parent
		}
		contents.Breadcrumbs = models.BuildBreadcrumbs(chain)

		contents.Folders, contents.Files, err = s.repo.ListChildren(txCtx, folderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return contents, nil
}

// GetFolder retrieves a single folder
func (s *dataRoomService) GetFolder(ctx context.Context, id int64) (*models.Folder, error) {
	return s.repo.GetFolder(ctx, id)
}

// CreateFolder creates a folder under an optional parent
func (s *dataRoomService) CreateFolder(ctx context.Context, req *dataroomSvc.CreateFolderRequest) (*models.Folder, error) {
	name, err := validateFolderName(req.Name)
	if err != nil {
		return nil, err
	}

	folder, err := s.repo.CreateFolder(ctx, name, req.ParentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"parent_id", folder.ParentID,
	)
	return folder, nil
}

// RenameFolder renames a folder in place
func (s *dataRoomService) RenameFolder(ctx context.Context, id int64, name string) (*models.Folder, error) {
	name, err := validateFolderName(name)
	if err != nil {
		return nil, err
	}

	folder, err := s.repo.RenameFolder(ctx, id, name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder renamed", "id", id, "name", folder.Name)
	return folder, nil
}

// UpdateFolder applies an optional rename and an optional move as one change;
// conflicts are judged against the final name and parent only
func (s *dataRoomService) UpdateFolder(ctx context.Context, id int64, req *dataroomSvc.UpdateFolderRequest) (*models.Folder, error) {
	if req.Name == nil && !req.ParentID.Present {
		return nil, &domain.ValidationError{Message: "at least one of name or parent_id must be provided"}
	}

	var name string
	if req.Name != nil {
		var err error
		if name, err = validateFolderName(*req.Name); err != nil {
			return nil, err
		}
	}

	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetFolder(txCtx, id)
		if err != nil {
			return err
		}
		targetName, parentID := current.Name, current.ParentID
		if req.Name != nil {
			targetName = name
		}
		if req.ParentID.Present {
			parentID = req.ParentID.Value
		}
		folder, err = s.repo.RelocateFolder(txCtx, id, targetName, parentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder updated",
		"id", id,
		"name", folder.Name,
		"parent_id", folder.ParentID,
	)
	return folder, nil
}

// DeleteFolder removes the subtree rows first, then their blobs.
// Blob failures leave orphans behind and are only logged.
func (s *dataRoomService) DeleteFolder(ctx context.Context, id int64) error {
	result, err := s.repo.DeleteFolderCascade(ctx, id)
	if err != nil {
		return err
	}

	for _, file := range result.DeletedFiles {
		s.deleteBlob(ctx, file.StoredID, "file_id", file.ID)
	}

	s.logger.Info("folder deleted",
		"id", id,
		"deleted_folders", len(result.DeletedFolderIDs),
		"deleted_files", len(result.DeletedFiles),
	)
	return nil
}

// GetFile retrieves a single file's metadata
func (s *dataRoomService) GetFile(ctx context.Context, id int64) (*models.File, error) {
	return s.repo.GetFile(ctx, id)
}

// RenameFile renames a file in place; the blob is untouched
func (s *dataRoomService) RenameFile(ctx context.Context, id int64, name string) (*models.File, error) {
	name, err := validateFileName(name)
	if err != nil {
		return nil, err
	}

	file, err := s.repo.RenameFile(ctx, id, name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("file renamed", "id", id, "name", file.Name)
	return file, nil
}

// UpdateFile applies an optional rename and an optional move as one change
func (s *dataRoomService) UpdateFile(ctx context.Context, id int64, req *dataroomSvc.UpdateFileRequest) (*models.File, error) {
	if req.Name == nil && !req.FolderID.Present {
		return nil, &domain.ValidationError{Message: "at least one of name or folder_id must be provided"}
	}

	var name string
	if req.Name != nil {
		var err error
		if name, err = validateFileName(*req.Name); err != nil {
			return nil, err
		}
	}

	var file *models.File
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetFile(txCtx, id)
		if err != nil {
			return err
		}
		targetName, folderID := current.Name, current.FolderID
		if req.Name != nil {
			targetName = name
		}
		if req.FolderID.Present {
			folderID = req.FolderID.Value
		}
		file, err = s.repo.RelocateFile(txCtx, id, targetName, folderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file updated",
		"id", id,
		"name", file.Name,
		"folder_id", file.FolderID,
	)
	return file, nil
}

// DeleteFile removes the row first, then the blob
func (s *dataRoomService) DeleteFile(ctx context.Context, id int64) error {
	file, err := s.repo.DeleteFile(ctx, id)
	if err != nil {
		return err
	}

	s.deleteBlob(ctx, file.StoredID, "file_id", file.ID)

	s.logger.Info("file deleted", "id", id, "name", file.Name)
	return nil
}

// DownloadFile opens a file's content
func (s *dataRoomService) DownloadFile(ctx context.Context, id int64) (*dataroomSvc.FileContent, error) {
	file, err := s.repo.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := s.blobs.Open(ctx, file.StoredID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("file row has no blob", "file_id", id, "stored_id", file.StoredID)
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("content for file %d not found", id)}
		}
		return nil, &domain.StorageFailureError{Message: "failed to read file content", Err: err}
	}

	return &dataroomSvc.FileContent{File: file, Content: content}, nil
}

// deleteBlob removes a blob after its row is gone.
// The request context may already be cancelled, so cleanup runs detached from it.
func (s *dataRoomService) deleteBlob(ctx context.Context, storedID string, attrs ...any) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), storedID); err != nil {
		s.logger.Warn("blob delete failed, leaving orphan",
			append([]any{"stored_id", storedID, "error", err}, attrs...)...,
		)
	}
}
