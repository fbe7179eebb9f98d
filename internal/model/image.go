package model

import "time"

// Image is the metadata record for one stored blob.
//
// Filename is the content key: a hex digest derived from the upload
// instant plus the original filename, with the original extension kept.
// It is deliberately time-seeded rather than content-seeded — uploading
// the same bytes twice yields two distinct keys, so there is no implicit
// deduplication.
//
// StorageKey is the full path that addresses the blob in object storage:
// an optional folder path segment, an optional YYYY/MM/DD/ time segment,
// then Filename. A row exists only if a blob write was at least attempted
// (the upload pipeline writes metadata before the blob).
type Image struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalFilename"`
	Note         string    `json:"note"`
	FolderID     *string   `json:"folder_id"`
	StorageKey   string    `json:"fullPath"`
	Size         int64     `json:"fileSize"`
	MimeType     string    `json:"mimeType"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
