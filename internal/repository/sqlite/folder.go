package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/model"
	"github.com/sakif/imagevault/internal/repository"
)

var _ repository.FolderRepository = (*DB)(nil)

// CreateFolder inserts a folder. A sibling with the same name trips the
// idx_folders_sibling_name unique index and maps to ErrConflict, which is
// the authoritative duplicate check (the service's friendlier pre-check
// can race).
func (db *DB) CreateFolder(ctx context.Context, folder *model.Folder) error {
	folder.ID = xid.New().String()
	folder.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO folders (id, user_id, name, parent_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		folder.ID, folder.UserID, folder.Name, folder.ParentID, folder.CreatedAt,
	)
	if err != nil {
		return conflictOr(err, apperror.Conflict("a folder with this name already exists here"),
			"sqlite: inserting folder %q", folder.Name)
	}

	return nil
}

// GetFolderByID fetches a folder scoped to its owner. A folder owned by another
// user is indistinguishable from a missing one.
func (db *DB) GetFolderByID(ctx context.Context, userID, id string) (*model.Folder, error) {
	var f model.Folder

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, parent_id, created_at
		 FROM folders WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&f.ID, &f.UserID, &f.Name, &f.ParentID, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundOrForbidden("folder")
		}
		return nil, fmt.Errorf("sqlite: getting folder %s: %w", id, err)
	}

	return &f, nil
}

// ListFolders returns every folder the user owns, roots first, then by
// name, which lets the service build the tree in a single pass.
func (db *DB) ListFolders(ctx context.Context, userID string) ([]*model.Folder, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, parent_id, created_at
		 FROM folders WHERE user_id = ?
		 ORDER BY parent_id IS NOT NULL, name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing folders for user %s: %w", userID, err)
	}
	defer rows.Close()

	var folders []*model.Folder
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.ParentID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning folder: %w", err)
		}
		folders = append(folders, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating folders: %w", err)
	}

	return folders, nil
}

func (db *DB) CountChildFolders(ctx context.Context, userID, folderID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM folders WHERE user_id = ? AND parent_id = ?`,
		userID, folderID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting children of folder %s: %w", folderID, err)
	}
	return count, nil
}

// DeleteFolder removes a folder owned by the user. Emptiness (no children, no
// images) is checked by the service before calling this.
func (db *DB) DeleteFolder(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM folders WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting folder %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundOrForbidden("folder")
	}

	return nil
}
