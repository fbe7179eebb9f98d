package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/auth"
	"github.com/sakif/imagevault/internal/service"
)

// maxUploadMemory caps how much of a multipart body is buffered in memory
// before spilling to temp files.
const maxUploadMemory = 8 << 20

// ImageHandler serves the image pipeline endpoints.
type ImageHandler struct {
	images *service.ImageService
}

func NewImageHandler(images *service.ImageService) *ImageHandler {
	return &ImageHandler{images: images}
}

// Upload handles POST /image/upload. The multipart form carries one or
// more files under "imgfile" plus optional placement fields: folderId,
// enableTimePath, description, originalFilename.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	// Headroom above the per-file cap for multi-file batches and form
	// overhead; per-file size is still validated downstream.
	r.Body = http.MaxBytesReader(w, r.Body, 4*service.MaxUploadSize)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, apperror.ValidationFailed("imgfile", "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["imgfile"]
	if len(files) == 0 {
		writeError(w, apperror.ValidationFailed("imgfile", "please select a valid image file"))
		return
	}

	var folderID *string
	if id := r.FormValue("folderId"); id != "" {
		folderID = &id
	}
	var enableTimePath *bool
	if v := r.FormValue("enableTimePath"); v != "" {
		enabled := v == "true" || v == "1"
		enableTimePath = &enabled
	}
	description := r.FormValue("description")

	// A caller-supplied display name only makes sense for a single file.
	nameOverride := ""
	if len(files) == 1 {
		nameOverride = r.FormValue("originalFilename")
	}

	results := make([]*service.UploadResult, 0, len(files))
	for _, header := range files {
		result, err := h.uploadOne(r, claims, header, service.UploadParams{
			OriginalName:   headerName(header, nameOverride),
			Description:    description,
			FolderID:       folderID,
			EnableTimePath: enableTimePath,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		results = append(results, result)
	}

	writeSuccess(w, http.StatusCreated, "upload successful", results)
}

func (h *ImageHandler) uploadOne(r *http.Request, claims *auth.Claims, header *multipart.FileHeader, p service.UploadParams) (*service.UploadResult, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperror.ValidationFailed("imgfile", "failed to read uploaded file")
	}
	defer file.Close()

	p.Data = file
	p.Size = header.Size
	p.MimeType = header.Header.Get("Content-Type")
	return h.images.Upload(r.Context(), claims, p)
}

func headerName(header *multipart.FileHeader, override string) string {
	if override != "" {
		return override
	}
	return header.Filename
}

type listImagesRequest struct {
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	FolderID *string `json:"folderId"`
	Search   string  `json:"search"`
}

// List handles POST /image/list. folderId absent means all folders; an
// empty-string folderId means root-only.
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req listImagesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.images.List(r.Context(), claims, service.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		FolderID: req.FolderID,
		Search:   req.Search,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "images retrieved", result)
}

type deleteImagesRequest struct {
	Files []string `json:"files"`
}

// Delete handles DELETE /image/delete. Files are addressed by their
// content filename, the way embed links expose them.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req deleteImagesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.images.Delete(r.Context(), claims, req.Files); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "images deleted", nil)
}

type renameImageRequest struct {
	ID      string `json:"id"`
	NewName string `json:"newName"`
}

// Rename handles PUT /image/rename. Display name only; links keep working.
func (h *ImageHandler) Rename(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req renameImageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.images.Rename(r.Context(), claims, req.ID, req.NewName); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "image renamed", nil)
}

type noteImageRequest struct {
	ID   string `json:"id"`
	Note string `json:"note"`
}

// Note handles PUT /image/note. An empty note clears it.
func (h *ImageHandler) Note(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req noteImageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.images.UpdateNote(r.Context(), claims, req.ID, req.Note); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "note updated", nil)
}

type moveImagesRequest struct {
	ImageIDs []string `json:"imageIds"`
	FolderID *string  `json:"folderId"`
}

// Move handles PUT /image/move. A nil folderId moves to the root.
func (h *ImageHandler) Move(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req moveImagesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	moved, err := h.images.Move(r.Context(), claims, req.ImageIDs, req.FolderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "images moved", map[string]int{"moved": moved})
}

// Storage handles GET /image/storage: the raw bucket listing with prefix
// and cursor paging, for the storage browser view.
func (h *ImageHandler) Storage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.ClaimsFromContext(r.Context()); !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, apperror.ValidationFailed("limit", "limit must be a number"))
			return
		}
		limit = n
	}

	page, err := h.images.StorageList(r.Context(),
		r.URL.Query().Get("prefix"),
		r.URL.Query().Get("cursor"),
		limit,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "storage listed", page)
}
