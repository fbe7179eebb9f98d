package handler

import (
	"net/http"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/auth"
	"github.com/sakif/imagevault/internal/service"
)

// FolderHandler serves the folder-tree endpoints.
type FolderHandler struct {
	folders *service.FolderService
}

func NewFolderHandler(folders *service.FolderService) *FolderHandler {
	return &FolderHandler{folders: folders}
}

type createFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// Create handles POST /folder/create.
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req createFolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	folder, err := h.folders.Create(r.Context(), claims.UserID(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "folder created", folder)
}

// List handles GET /folder/list, returning root folders with nested
// children.
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	tree, err := h.folders.List(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "folders retrieved", tree)
}

type deleteFolderRequest struct {
	FolderID string `json:"folderId"`
}

// Delete handles DELETE /folder/delete. Only empty folders can go.
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req deleteFolderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.folders.Delete(r.Context(), claims.UserID(), req.FolderID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "folder deleted", nil)
}
