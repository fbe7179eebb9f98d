// Package minio implements storage.BlobStore against any S3-compatible
// object store (MinIO, R2, garage) via the minio-go client.
package minio

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sakif/imagevault/internal/storage"
)

// Config holds the connection settings for the object store.
type Config struct {
	Endpoint  string // host:port, no scheme
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store is the S3-backed blob store.
type Store struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ storage.BlobStore = (*Store)(nil)

// New connects to the object store and ensures the bucket exists.
// Bucket creation is idempotent across restarts and across multiple
// server instances racing at startup.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: creating client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: checking bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			// A concurrent instance may have won the race.
			if ok, _ := client.BucketExists(ctx, cfg.Bucket); !ok {
				return nil, fmt.Errorf("minio: creating bucket %q: %w", cfg.Bucket, err)
			}
		}
		logger.Info("created bucket", slog.String("bucket", cfg.Bucket))
	}

	return &Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio: putting %q: %w", key, err)
	}
	return nil
}

// Get returns a reader over the object. minio-go opens objects lazily, so
// a missing key only surfaces on the first read — Stat here converts that
// into storage.ErrNotFound up front.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio: getting %q: %w", key, err)
	}

	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("minio: stat %q: %w", key, err)
	}

	return obj, nil
}

// Delete removes the given keys one by one. S3 semantics make removing an
// absent key a no-op, which is what the delete pipeline wants: a retry
// after a half-completed delete must not fail on the already-gone blobs.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("minio: removing %q: %w", key, err)
		}
	}
	return nil
}

// List pages through keys under prefix using lexicographic start-after
// cursoring: NextCursor is the last key of the page and feeds the next
// call's cursor.
func (s *Store) List(ctx context.Context, prefix, cursor string, limit int) (*storage.ObjectPage, error) {
	// Cancel stops the listing goroutine once we have a full page.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: cursor,
	})

	page := &storage.ObjectPage{}
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: listing prefix %q: %w", prefix, obj.Err)
		}
		if len(page.Objects) == limit {
			// One more key exists beyond the page.
			page.Truncated = true
			page.NextCursor = page.Objects[limit-1].Key
			break
		}
		page.Objects = append(page.Objects, storage.Object{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}

	return page, nil
}
