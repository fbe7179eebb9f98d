// Package storage defines the content-addressable blob store the upload
// and delete pipelines write through. The minio subpackage talks to any
// S3-compatible backend; tests use an in-memory fake of BlobStore.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get when no object exists at the key.
var ErrNotFound = errors.New("storage: object not found")

// Object is one stored blob's listing entry.
type Object struct {
	Key          string    `json:"filename"`
	Size         int64     `json:"rawSize"`
	ContentType  string    `json:"type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"uploaded"`
}

// ObjectPage is one page of a prefix listing. Cursor pagination mirrors
// the backing store: pass NextCursor back in to continue.
type ObjectPage struct {
	Objects    []Object `json:"images"`
	Truncated  bool     `json:"truncated"`
	NextCursor string   `json:"cursor,omitempty"`
}

// BlobStore is the narrow object-storage interface the core depends on.
// Keys are full storage paths ("photos/2025/08/28/ab12...ef.png"); the
// store provides per-object atomicity but nothing across calls — multi-
// step sequences handle their own partial-failure ordering.
type BlobStore interface {
	// Put stores size bytes from r at key with the given content type.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns a reader over the object at key, or ErrNotFound.
	// The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the objects at the given keys. Deleting a missing
	// key is not an error.
	Delete(ctx context.Context, keys ...string) error
	// List pages through keys under prefix.
	List(ctx context.Context, prefix, cursor string, limit int) (*ObjectPage, error)
}
