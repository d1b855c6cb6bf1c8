package repository

import (
	"fmt"

	"dataroom/internal/domain"
)

// FolderNotFound builds the error returned when a folder ID has no row
func FolderNotFound(id int64) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("folder %d not found", id)}
}

// FileNotFound builds the error returned when a file ID has no row
func FileNotFound(id int64) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("file %d not found", id)}
}

// FolderConflict builds the error for a sibling folder name collision.
// existingID is 0 when the collision was only detected by the unique index.
func FolderConflict(name string, existingID int64) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("a folder named '%s' already exists in this location", name),
		ResourceType: "folder",
		ResourceID:   existingID,
	}
}

// FileConflict builds the error for a file name collision within a folder
func FileConflict(name string, existingID int64) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("a file named '%s' already exists in this folder", name),
		ResourceType: "file",
		ResourceID:   existingID,
	}
}

// MoveCycle builds the error for a folder move into its own subtree
func MoveCycle(folderID int64) error {
	return &domain.ValidationError{
		Message: fmt.Sprintf("cannot move folder %d into itself or one of its descendants", folderID),
	}
}
