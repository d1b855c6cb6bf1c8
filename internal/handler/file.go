package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"dataroom/internal/config"
	"dataroom/internal/domain"
	dataroomSvc "dataroom/internal/domain/services/dataroom"
	"dataroom/internal/httputil"
)

// FileHandler handles file HTTP requests
type FileHandler struct {
	service dataroomSvc.DataRoomService
	uploads *config.UploadPolicy
	logger  *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(service dataroomSvc.DataRoomService, uploads *config.UploadPolicy, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		service: service,
		uploads: uploads,
		logger:  logger,
	}
}

type updateFileBody struct {
	Name     *string                `json:"name"`
	FolderID httputil.OptionalInt64 `json:"folder_id"`
}

// UploadFile stores a document
// POST /api/files (multipart/form-data)
//   - file: the document (required)
//   - folder_id: target folder, empty or "null" for root
//   - name: display name, defaults to the uploaded filename
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes+config.MultipartOverheadBytes)

	if err := r.ParseMultipartForm(config.MultipartMemoryBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			handleError(w, h.logger, &domain.PayloadTooLargeError{
				Message:  fmt.Sprintf("file exceeds the maximum upload size of %d bytes", h.uploads.MaxBytes),
				MaxBytes: h.uploads.MaxBytes,
			})
			return
		}
		badRequest(w, "expected a multipart/form-data body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	folderID, err := httputil.ParseOptionalID(strings.TrimSpace(r.FormValue("folder_id")))
	if err != nil {
		badRequest(w, "folder_id must be a positive integer or null")
		return
	}

	created, err := h.service.UploadFile(r.Context(), &dataroomSvc.UploadFileRequest{
		Content:          file,
		Filename:         header.Filename,
		Name:             r.FormValue("name"),
		DeclaredMimeType: header.Header.Get("Content-Type"),
		Size:             header.Size,
		FolderID:         folderID,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, created)
}

// GetFile retrieves a file's metadata
// GET /api/files/{id}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, err := h.service.GetFile(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// UpdateFile renames and/or moves a file
// PATCH /api/files/{id}
//   - name: new display name (optional)
//   - folder_id: absent = stay, null = move to root, id = move into id
func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body updateFileBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		handleParseError(w, h.logger, err)
		return
	}

	file, err := h.service.UpdateFile(r.Context(), id, &dataroomSvc.UpdateFileRequest{
		Name: body.Name,
		FolderID: dataroomSvc.OptionalParent{
			Present: body.FolderID.Present,
			Value:   body.FolderID.Value,
		},
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// DeleteFile deletes a file and its stored content
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteFile(r.Context(), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadFile streams a file's content for inline display
// GET /api/files/{id}/content
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	content, err := h.service.DownloadFile(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	defer func() { _ = content.Content.Close() }()

	w.Header().Set("Content-Type", content.File.MimeType)
	w.Header().Set("Content-Disposition", inlineDisposition(content.File.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(content.File.Size, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, content.Content); err != nil {
		// Headers are already sent; the client sees a truncated body
		h.logger.Warn("file download interrupted",
			"file_id", id,
			"error", err,
		)
	}
}

// inlineDisposition builds a Content-Disposition header carrying the display name.
// Non-ASCII names are RFC 2231 encoded by mime.FormatMediaType.
func inlineDisposition(name string) string {
	if disposition := mime.FormatMediaType("inline", map[string]string{"filename": name}); disposition != "" {
		return disposition
	}
	return "inline"
}
