package dataroom

import (
	"encoding/json"
	"fmt"
	"time"
)

type File struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	FolderID  *int64    `json:"folder_id" db:"folder_id"` // NULL = root level
	MimeType  string    `json:"mime_type" db:"mime_type"`
	Size      int64     `json:"size" db:"size"`
	StoredID  string    `json:"-" db:"stored_id"` // Blob key, never exposed to clients
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DownloadURL is the API path serving the file's content
func (f *File) DownloadURL() string {
	return fmt.Sprintf("/api/files/%d/content", f.ID)
}

// MarshalJSON adds the computed download_url to the serialized file
func (f File) MarshalJSON() ([]byte, error) {
	type fileAlias File
	return json.Marshal(struct {
		fileAlias
		DownloadURL string `json:"download_url"`
	}{
		fileAlias:   fileAlias(f),
		DownloadURL: f.DownloadURL(),
	})
}
