package dataroom

import (
	"context"

	models "dataroom/internal/domain/models/dataroom"
)

// TreeRepository defines data access operations for the folder/file tree.
// A nil parent or folder ID always denotes the root.
type TreeRepository interface {
	// ListChildren returns the direct child folders and files of parentID,
	// ordered case-insensitively by name
	ListChildren(ctx context.Context, parentID *int64) ([]models.Folder, []models.File, error)

	// GetFolder retrieves a folder by ID
	GetFolder(ctx context.Context, id int64) (*models.Folder, error)

	// GetFile retrieves a file by ID
	GetFile(ctx context.Context, id int64) (*models.File, error)

	// CreateFolder creates a folder under parentID
	CreateFolder(ctx context.Context, name string, parentID *int64) (*models.Folder, error)

	// RenameFolder renames a folder in place
	RenameFolder(ctx context.Context, id int64, newName string) (*models.Folder, error)

	// MoveFolder re-parents a folder, refusing moves that would create a cycle
	MoveFolder(ctx context.Context, id int64, newParentID *int64) (*models.Folder, error)

	// RelocateFolder sets name and parent together; only the final placement
	// is checked for sibling conflicts and cycles
	RelocateFolder(ctx context.Context, id int64, name string, parentID *int64) (*models.Folder, error)

	// DeleteFolderCascade removes a folder with every descendant folder and file
	DeleteFolderCascade(ctx context.Context, id int64) (*CascadeResult, error)

	// AncestorChain returns the folders from the root down to folderID (inclusive)
	AncestorChain(ctx context.Context, folderID *int64) ([]models.Folder, error)

	// CreateFile inserts a file row; ID and timestamps are filled in
	CreateFile(ctx context.Context, file *models.File) error

	// RenameFile renames a file in place
	RenameFile(ctx context.Context, id int64, newName string) (*models.File, error)

	// MoveFile moves a file to another folder
	MoveFile(ctx context.Context, id int64, newFolderID *int64) (*models.File, error)

	// RelocateFile sets name and folder together, checking only the final placement
	RelocateFile(ctx context.Context, id int64, name string, folderID *int64) (*models.File, error)

	// FindFileByName returns the file in folderID whose name matches under the
	// store's case-insensitive rule, or nil when the name is free
	FindFileByName(ctx context.Context, name string, folderID *int64) (*models.File, error)

	// DeleteFile removes a file row and returns it for blob reclamation
	DeleteFile(ctx context.Context, id int64) (*models.File, error)

	// ListStoredIDs returns every blob key referenced by a file row
	ListStoredIDs(ctx context.Context) (map[string]struct{}, error)
}

// CascadeResult describes what a cascading folder delete removed
type CascadeResult struct {
	DeletedFolderIDs []int64
	DeletedFiles     []models.File
}
