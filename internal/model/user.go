// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Users authenticate with a username and password; the password is stored
// only as a bcrypt hash. ChatID is an optional external-notification
// identity (a Telegram chat id). It is a *int64 because "not bound" must be
// distinguishable from chat id 0 — the DB enforces uniqueness only for
// non-null values.
//
// The Enable* flags plus CustomBaseURL are per-user link-building
// preferences. A snapshot of them is embedded in the session token so the
// client can construct image URLs without a profile round trip on every
// request (see internal/auth). The snapshot goes stale until re-login;
// GET /user/profile always returns the fresh row.
type User struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	PasswordHash       string    `json:"-"` // never serialized
	ChatID             *int64    `json:"chat_id"`
	CustomBaseURL      string    `json:"r2_custom_url"` // user-supplied blob base URL, may be empty
	EnableCDN          bool      `json:"enable_baidu_cdn"`
	EnableOptimization bool      `json:"enable_image_optimization"`
	EnableTimePath     bool      `json:"enable_time_path"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
