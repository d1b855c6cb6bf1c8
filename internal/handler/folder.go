package handler

import (
	"log/slog"
	"net/http"

	dataroomSvc "dataroom/internal/domain/services/dataroom"
	"dataroom/internal/httputil"
)

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	service dataroomSvc.DataRoomService
	logger  *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(service dataroomSvc.DataRoomService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		service: service,
		logger:  logger,
	}
}

type createFolderBody struct {
	Name     string                 `json:"name"`
	ParentID httputil.OptionalInt64 `json:"parent_id"`
}

type updateFolderBody struct {
	Name     *string                `json:"name"`
	ParentID httputil.OptionalInt64 `json:"parent_id"`
}

// Browse lists a folder's children with breadcrumbs
// GET /api/folders?parent_id=
// An absent, empty or "null" parent_id lists the root
func (h *FolderHandler) Browse(w http.ResponseWriter, r *http.Request) {
	parentID, err := httputil.ParseOptionalID(r.URL.Query().Get("parent_id"))
	if err != nil {
		badRequest(w, "parent_id must be a positive integer or null")
		return
	}

	contents, err := h.service.Browse(r.Context(), parentID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// CreateFolder creates a new folder
// POST /api/folders
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var body createFolderBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		handleParseError(w, h.logger, err)
		return
	}

	folder, err := h.service.CreateFolder(r.Context(), &dataroomSvc.CreateFolderRequest{
		Name:     body.Name,
		ParentID: body.ParentID.Value,
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder by ID
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	folder, err := h.service.GetFolder(r.Context(), id)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// UpdateFolder renames and/or moves a folder
// PATCH /api/folders/{id}
//   - name: new name (optional)
//   - parent_id: absent = stay, null = move to root, id = move under id
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body updateFolderBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		handleParseError(w, h.logger, err)
		return
	}

	folder, err := h.service.UpdateFolder(r.Context(), id, &dataroomSvc.UpdateFolderRequest{
		Name: body.Name,
		ParentID: dataroomSvc.OptionalParent{
			Present: body.ParentID.Present,
			Value:   body.ParentID.Value,
		},
	})
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder with all nested folders and files
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteFolder(r.Context(), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
