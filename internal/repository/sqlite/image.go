package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/model"
	"github.com/sakif/imagevault/internal/repository"
)

var _ repository.ImageRepository = (*DB)(nil)

const imageColumns = `id, user_id, filename, original_name, note, folder_id,
	storage_key, size, mime_type, created_at, updated_at`

// CreateImage inserts an image metadata row. The upload pipeline calls this
// BEFORE writing the blob; a failure here means no blob write is
// attempted at all.
func (db *DB) CreateImage(ctx context.Context, img *model.Image) error {
	now := time.Now()
	img.ID = xid.New().String()
	img.CreatedAt = now
	img.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO images (id, user_id, filename, original_name, note, folder_id,
			storage_key, size, mime_type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		img.ID, img.UserID, img.Filename, img.OriginalName, img.Note, img.FolderID,
		img.StorageKey, img.Size, img.MimeType, img.CreatedAt, img.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, apperror.Conflict("an image with this storage key already exists"),
			"sqlite: inserting image %q", img.Filename)
	}

	return nil
}

func (db *DB) GetImageByID(ctx context.Context, userID, id string) (*model.Image, error) {
	var img model.Image

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(
		&img.ID, &img.UserID, &img.Filename, &img.OriginalName, &img.Note, &img.FolderID,
		&img.StorageKey, &img.Size, &img.MimeType, &img.CreatedAt, &img.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundOrForbidden("image")
		}
		return nil, fmt.Errorf("sqlite: getting image %s: %w", id, err)
	}

	return &img, nil
}

// GetImagesByFilenames resolves metadata rows for content filenames, scoped to
// the user. The delete pipeline uses this to map client-supplied
// filenames to the storage keys that actually address the blobs.
func (db *DB) GetImagesByFilenames(ctx context.Context, userID string, filenames []string) ([]*model.Image, error) {
	if len(filenames) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(filenames)-1) + "?"
	args := make([]any, 0, len(filenames)+1)
	for _, f := range filenames {
		args = append(args, f)
	}
	args = append(args, userID)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images
		 WHERE filename IN (`+placeholders+`) AND user_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolving filenames: %w", err)
	}
	defer rows.Close()

	return scanImages(rows)
}

// ListImages returns one page of the user's images, newest first, with the
// total matching-row count for pagination.
func (db *DB) ListImages(ctx context.Context, userID string, filter repository.ImageFilter, limit, offset int) (*repository.ImagePage, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if filter.FolderID != nil {
		if *filter.FolderID == "" {
			where = append(where, "folder_id IS NULL")
		} else {
			where = append(where, "folder_id = ?")
			args = append(args, *filter.FolderID)
		}
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, "(original_name LIKE ? OR note LIKE ?)")
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM images WHERE `+whereClause, args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting images: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+imageColumns+` FROM images WHERE `+whereClause+`
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing images: %w", err)
	}
	defer rows.Close()

	images, err := scanImages(rows)
	if err != nil {
		return nil, err
	}

	return &repository.ImagePage{Images: images, Total: total}, nil
}

func (db *DB) UpdateImageName(ctx context.Context, userID, id, newName string) error {
	return db.updateImage(ctx, userID, id, `original_name = ?`, newName)
}

func (db *DB) UpdateImageNote(ctx context.Context, userID, id, note string) error {
	return db.updateImage(ctx, userID, id, `note = ?`, note)
}

// UpdateImagePlacement rewrites folder reference and storage key in one
// statement so a moved image never has a key pointing outside its folder.
func (db *DB) UpdateImagePlacement(ctx context.Context, userID, id string, folderID *string, storageKey string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE images SET folder_id = ?, storage_key = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		folderID, storageKey, time.Now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: moving image %s: %w", id, err)
	}
	return requireRowChanged(res, "image")
}

func (db *DB) updateImage(ctx context.Context, userID, id, set string, value any) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE images SET `+set+`, updated_at = ? WHERE id = ? AND user_id = ?`,
		value, time.Now(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating image %s: %w", id, err)
	}
	return requireRowChanged(res, "image")
}

// DeleteImages removes metadata rows by ID, scoped to the user. The delete
// pipeline calls this only AFTER the blobs are gone from object storage.
func (db *DB) DeleteImages(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, userID)

	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM images WHERE id IN (`+placeholders+`) AND user_id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting images: %w", err)
	}

	return nil
}

func (db *DB) CountFolderImages(ctx context.Context, userID, folderID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM images WHERE user_id = ? AND folder_id = ?`,
		userID, folderID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting images in folder %s: %w", folderID, err)
	}
	return count, nil
}

func scanImages(rows *sql.Rows) ([]*model.Image, error) {
	var images []*model.Image
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(
			&img.ID, &img.UserID, &img.Filename, &img.OriginalName, &img.Note, &img.FolderID,
			&img.StorageKey, &img.Size, &img.MimeType, &img.CreatedAt, &img.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning image: %w", err)
		}
		images = append(images, &img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating images: %w", err)
	}
	return images, nil
}

func requireRowChanged(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundOrForbidden(resource)
	}
	return nil
}
