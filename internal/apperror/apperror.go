// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these errors; the HTTP layer translates them to status
// codes in handler/response.go. No other layer knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors. Handlers match these with errors.Is to pick a status:
//
//	ErrValidation   → 400 (bad input shape, type, or size)
//	ErrUnauthorized → 401 (missing, invalid, or expired token; bad login)
//	ErrNotFound     → 404 (absent OR not owned by the caller — deliberately
//	                  conflated so responses never leak whether a resource
//	                  exists under another account)
//	ErrConflict     → 400 (duplicate name; the API contract predates this
//	                  server and clients expect 400, not 409)
//	ErrStorage      → 500 (metadata store or blob store operation failed)
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrStorage      = errors.New("storage failure")
)

// AppError pairs a sentinel with a human-readable message safe to return
// to clients. Field optionally names the offending input field.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

func Unauthorized(message string) *AppError {
	return &AppError{Err: ErrUnauthorized, Message: message}
}

// NotFoundOrForbidden covers both "no such resource" and "owned by someone
// else". Callers get the same message either way.
func NotFoundOrForbidden(resource string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found or not accessible", resource),
	}
}

func Conflict(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

// Storage wraps a store failure with a client-safe message. The underlying
// error is carried for logging but never serialized to the response.
func Storage(message string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrStorage, cause),
		Message: message,
	}
}
