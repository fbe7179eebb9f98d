package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/auth"
	"github.com/sakif/imagevault/internal/service"
)

// UserHandler serves the profile endpoints. Both routes sit behind the
// auth middleware, so claims are always present here.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Profile handles GET /user/profile. It reads the stored row, not the
// token snapshot, so a stale token still shows current settings.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, err := h.users.Profile(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "profile retrieved", user)
}

type updateFieldRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// Update handles PUT /user/update: one allow-listed field per request.
// Changes take effect in tokens only after the next login; until then the
// claims snapshot is intentionally stale.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req updateFieldRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Field == "" {
		writeError(w, apperror.ValidationFailed("field", "field is required"))
		return
	}

	if err := h.users.UpdateField(r.Context(), claims.UserID(), req.Field, req.Value); err != nil {
		writeError(w, err)
		return
	}

	// Return the updated row so the settings page can re-render without
	// a second request.
	user, err := h.users.Profile(r.Context(), claims.UserID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "profile updated", user)
}
