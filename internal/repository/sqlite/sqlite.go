// Package sqlite implements the repository interfaces on SQLite.
//
// The driver is modernc.org/sqlite — a pure-Go translation of the SQLite
// sources, so the binary cross-compiles without CGo. The blank import in
// this file registers it with database/sql under the name "sqlite".
//
// Uniqueness invariants live HERE, not only in service-level checks:
// two concurrent requests can both pass a SELECT-then-INSERT existence
// check, so the UNIQUE indexes below are what actually closes the race.
// The repositories translate constraint violations into
// apperror.ErrConflict so services and handlers see a domain error.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sakif/imagevault/internal/apperror"
)

// DB wraps a sql.DB pool and implements repository.UserRepository,
// repository.FolderRepository, and repository.ImageRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" in tests for an isolated throwaway database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Surface a bad path or permissions problem now, not on first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — the
	// default rollback journal locks the whole file per write.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; folders.parent_id and
	// images.folder_id rely on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after
// New so WAL content is flushed on shutdown.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	// chat_id is UNIQUE but nullable; SQLite treats NULLs as distinct, so
	// any number of users may be unbound while a bound id stays exclusive.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			username            TEXT NOT NULL UNIQUE,
			password_hash       TEXT NOT NULL,
			chat_id             INTEGER UNIQUE,
			custom_base_url     TEXT NOT NULL DEFAULT '',
			enable_cdn          INTEGER NOT NULL DEFAULT 0,
			enable_optimization INTEGER NOT NULL DEFAULT 0,
			enable_time_path    INTEGER NOT NULL DEFAULT 0,
			created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Sibling-name uniqueness: UNIQUE(user_id, parent_id, name) would NOT
	// catch duplicate root folders because parent_id is NULL there and
	// SQLite considers NULLs unequal. The expression index coalesces NULL
	// to '' so root siblings collide too.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS folders (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			name       TEXT NOT NULL,
			parent_id  TEXT REFERENCES folders(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_sibling_name
			ON folders(user_id, COALESCE(parent_id, ''), name);
		CREATE INDEX IF NOT EXISTS idx_folders_user ON folders(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating folders table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id),
			filename      TEXT NOT NULL,
			original_name TEXT NOT NULL DEFAULT '',
			note          TEXT NOT NULL DEFAULT '',
			folder_id     TEXT REFERENCES folders(id),
			storage_key   TEXT NOT NULL UNIQUE,
			size          INTEGER NOT NULL DEFAULT 0,
			mime_type     TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_images_user_created ON images(user_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_images_user_filename ON images(user_id, filename);
		CREATE INDEX IF NOT EXISTS idx_images_folder ON images(folder_id);
	`)
	if err != nil {
		return fmt.Errorf("creating images table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite doesn't export a typed error for this, only the
// SQLite message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// conflictOr maps a unique violation to the given domain conflict and
// wraps anything else.
func conflictOr(err error, conflict *apperror.AppError, format string, args ...any) error {
	if isUniqueViolation(err) {
		return conflict
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
