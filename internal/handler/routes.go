package handler

import "net/http"

// RegisterRoutes mounts the data room API on mux (Go 1.22+ enhanced patterns)
func RegisterRoutes(mux *http.ServeMux, folders *FolderHandler, files *FileHandler) {
	// Health check
	mux.HandleFunc("GET /health", HealthCheck)
	mux.HandleFunc("GET /api/health", HealthCheck)

	// Folder routes
	mux.HandleFunc("GET /api/folders", folders.Browse)
	mux.HandleFunc("POST /api/folders", folders.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", folders.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folders.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folders.DeleteFolder)

	// File routes
	mux.HandleFunc("POST /api/files", files.UploadFile)
	mux.HandleFunc("GET /api/files/{id}", files.GetFile)
	mux.HandleFunc("PATCH /api/files/{id}", files.UpdateFile)
	mux.HandleFunc("DELETE /api/files/{id}", files.DeleteFile)
	mux.HandleFunc("GET /api/files/{id}/content", files.DownloadFile)
}
