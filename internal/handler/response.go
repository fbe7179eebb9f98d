package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/imagevault/internal/apperror"
)

// envelope is the response shape shared by every endpoint. Success and
// failure responses differ only in the flag and the presence of data, so
// clients parse one format everywhere.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON sends a JSON response with the given status code. Headers and
// status must be written before the body; once Encode writes, header
// changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent; all we can do is log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError translates a domain error into a status code and the shared
// envelope. The service layer never sees HTTP; this function is the only
// place sentinels map to statuses.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			// The API contract predates this server; clients expect 400
			// for duplicates, not 409.
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrStorage):
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, envelope{Success: false, Message: appErr.Message})
		return
	}

	// Unknown error. The raw message might contain SQL or file paths, so
	// never put it in the response.
	slog.Error("unhandled error in HTTP layer", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, envelope{
		Success: false,
		Message: "an internal error occurred",
	})
}

// Health is the unauthenticated liveness endpoint.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "ok", nil)
}

// decodeBody decodes a JSON request body into dst, rejecting unknown
// syntax with a validation error.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid request body")
	}
	return nil
}
