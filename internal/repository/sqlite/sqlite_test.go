package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/imagevault/internal/model"
)

// newTestDB returns a migrated in-memory database, closed automatically
// when the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()

	user := &model.User{
		Username:     username,
		PasswordHash: "$2a$04$testhashtesthashtesthash",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestFolder(t *testing.T, db *DB, userID, name string, parentID *string) *model.Folder {
	t.Helper()

	folder := &model.Folder{UserID: userID, Name: name, ParentID: parentID}
	if err := db.CreateFolder(context.Background(), folder); err != nil {
		t.Fatalf("failed to create test folder: %v", err)
	}
	return folder
}

func createTestImage(t *testing.T, db *DB, userID, filename string, folderID *string) *model.Image {
	t.Helper()

	key := filename
	if folderID != nil {
		key = "folder/" + filename
	}
	img := &model.Image{
		UserID:       userID,
		Filename:     filename,
		OriginalName: "original-" + filename,
		FolderID:     folderID,
		StorageKey:   key,
		Size:         1234,
		MimeType:     "image/png",
	}
	if err := db.CreateImage(context.Background(), img); err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
	return img
}
