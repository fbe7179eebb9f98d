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

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, password_hash, chat_id, custom_base_url,
	enable_cdn, enable_optimization, enable_time_path, created_at, updated_at`

// userUpdatableColumns is the full set of columns UpdateField may touch.
// The service layer has its own allow-list in API field names; this map is
// the repository's final word, so a bug upstream can never turn into
// arbitrary column writes.
var userUpdatableColumns = map[string]bool{
	"username":            true,
	"chat_id":             true,
	"custom_base_url":     true,
	"enable_cdn":          true,
	"enable_optimization": true,
	"enable_time_path":    true,
}

// CreateUser inserts a new user. The ID and timestamps are assigned here.
// A duplicate username maps to apperror.ErrConflict via the UNIQUE
// constraint — this is what closes the register race, not the service's
// pre-check.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, chat_id, custom_base_url,
			enable_cdn, enable_optimization, enable_time_path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.ChatID, user.CustomBaseURL,
		user.EnableCDN, user.EnableOptimization, user.EnableTimePath,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, apperror.Conflict("username already exists"),
			"sqlite: inserting user %q", user.Username)
	}

	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, `WHERE username = ?`, username)
}

func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, arg,
	).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.ChatID, &u.CustomBaseURL,
		&u.EnableCDN, &u.EnableOptimization, &u.EnableTimePath,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundOrForbidden("user")
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	return &u, nil
}

// UsernameTaken reports whether username is used by anyone other than
// excludeUserID. Pass "" at registration to check against all users.
func (db *DB) UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ? AND id != ?`,
		username, excludeUserID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %q: %w", username, err)
	}
	return count > 0, nil
}

// ChatIDTaken returns the ID of the user holding the chat id, or "" if it
// is unbound. Callers compare against their own ID so re-saving an
// unchanged chat id is not a conflict.
func (db *DB) ChatIDTaken(ctx context.Context, chatID int64) (string, error) {
	var ownerID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE chat_id = ?`, chatID,
	).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: checking chat id %d: %w", chatID, err)
	}
	return ownerID, nil
}

// UpdateUserField writes a single profile column and bumps updated_at.
func (db *DB) UpdateUserField(ctx context.Context, userID, field string, value any) error {
	if !userUpdatableColumns[field] {
		return apperror.ValidationFailed("field", fmt.Sprintf("field %q cannot be updated", field))
	}

	// field is vetted against the map above, so interpolating it is safe.
	res, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE id = ?`, field),
		value, time.Now(), userID,
	)
	if err != nil {
		return conflictOr(err, apperror.Conflict(fmt.Sprintf("%s already in use", field)),
			"sqlite: updating user %s field %s", userID, field)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundOrForbidden("user")
	}

	return nil
}
