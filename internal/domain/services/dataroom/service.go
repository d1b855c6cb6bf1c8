package dataroom

import (
	"context"
	"io"
	"time"

	models "dataroom/internal/domain/models/dataroom"
)

// DataRoomService handles folder and file business logic
type DataRoomService interface {
	// Browse returns the contents and breadcrumbs of a folder (nil for root)
	Browse(ctx context.Context, folderID *int64) (*FolderContents, error)

	// GetFolder retrieves a single folder
	GetFolder(ctx context.Context, id int64) (*models.Folder, error)

	// CreateFolder creates a folder under an optional parent
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Folder, error)

	// RenameFolder renames a folder in place
	RenameFolder(ctx context.Context, id int64, name string) (*models.Folder, error)

	// UpdateFolder renames and/or moves a folder
	UpdateFolder(ctx context.Context, id int64, req *UpdateFolderRequest) (*models.Folder, error)

	// DeleteFolder removes a folder subtree and reclaims its blobs
	DeleteFolder(ctx context.Context, id int64) error

	// GetFile retrieves a single file's metadata
	GetFile(ctx context.Context, id int64) (*models.File, error)

	// UploadFile validates and stores an uploaded document
	UploadFile(ctx context.Context, req *UploadFileRequest) (*models.File, error)

	// RenameFile renames a file in place
	RenameFile(ctx context.Context, id int64, name string) (*models.File, error)

	// UpdateFile renames and/or moves a file
	UpdateFile(ctx context.Context, id int64, req *UpdateFileRequest) (*models.File, error)

	// DeleteFile removes a file row and its blob
	DeleteFile(ctx context.Context, id int64) error

	// DownloadFile opens a file's content. The caller must close Content.
	DownloadFile(ctx context.Context, id int64) (*FileContent, error)

	// ReclaimOrphans deletes unreferenced blobs older than olderThan
	ReclaimOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"` // null for root
}

// OptionalParent carries PATCH semantics for a parent reference.
// This is transport-agnostic - handler maps from httputil.OptionalInt64.
//   - Present=false: leave location unchanged
//   - Present=true, Value=nil: move to root
//   - Present=true, Value=&id: move under id
type OptionalParent struct {
	Present bool
	Value   *int64
}

// UpdateFolderRequest represents a folder rename and/or move
type UpdateFolderRequest struct {
	Name     *string
	ParentID OptionalParent
}

// UpdateFileRequest represents a file rename and/or move
type UpdateFileRequest struct {
	Name     *string
	FolderID OptionalParent
}

// UploadFileRequest carries an upload from the transport layer
type UploadFileRequest struct {
	Content          io.Reader
	Filename         string // Client-supplied filename
	Name             string // Optional display name, overrides Filename
	DeclaredMimeType string
	Size             int64 // Declared size, -1 when unknown
	FolderID         *int64
}

// FolderContents represents a folder with its children
type FolderContents struct {
	Parent      *models.Folder      `json:"parent"` // null for root
	Breadcrumbs []models.Breadcrumb `json:"breadcrumbs"`
	Folders     []models.Folder     `json:"folders"`
	Files       []models.File       `json:"files"`
}

// FileContent is an open file body with its metadata
type FileContent struct {
	File    *models.File
	Content io.ReadCloser
}
