package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/model"
	"github.com/sakif/imagevault/internal/repository"
)

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestCreateImage(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	img := createTestImage(t, db, user.ID, "abc123.png", nil)
	if img.ID == "" {
		t.Error("CreateImage() did not set img.ID")
	}
	if img.CreatedAt.IsZero() {
		t.Error("CreateImage() did not set img.CreatedAt")
	}
}

func TestCreateImage_DuplicateStorageKey(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	createTestImage(t, db, user.ID, "abc123.png", nil)

	duplicate := &model.Image{
		UserID:       user.ID,
		Filename:     "abc123.png",
		OriginalName: "other.png",
		StorageKey:   "abc123.png",
		MimeType:     "image/png",
	}
	err := db.CreateImage(context.Background(), duplicate)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateImage() error = %v, want ErrConflict", err)
	}
}

func TestGetImageByID_ScopedToUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	img := createTestImage(t, db, alice.ID, "abc123.png", nil)

	got, err := db.GetImageByID(context.Background(), alice.ID, img.ID)
	if err != nil {
		t.Fatalf("GetImageByID() owner error = %v", err)
	}
	if got.StorageKey != img.StorageKey {
		t.Errorf("StorageKey = %q, want %q", got.StorageKey, img.StorageKey)
	}

	_, err = db.GetImageByID(context.Background(), bob.ID, img.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetImageByID() other user error = %v, want ErrNotFound", err)
	}
}

func TestGetImagesByFilenames(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestImage(t, db, alice.ID, "one.png", nil)
	createTestImage(t, db, alice.ID, "two.png", nil)
	createTestImage(t, db, bob.ID, "three.png", nil)

	imgs, err := db.GetImagesByFilenames(context.Background(), alice.ID,
		[]string{"one.png", "two.png", "three.png", "missing.png"})
	if err != nil {
		t.Fatalf("GetImagesByFilenames() error = %v", err)
	}
	// three.png belongs to bob, missing.png does not exist
	if len(imgs) != 2 {
		t.Errorf("len(imgs) = %d, want 2", len(imgs))
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListImages_PaginationAndOrder(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	for i := 0; i < 15; i++ {
		createTestImage(t, db, user.ID, fmt.Sprintf("img-%02d.png", i), nil)
	}

	page, err := db.ListImages(context.Background(), user.ID, repository.ImageFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}
	if page.Total != 15 {
		t.Errorf("Total = %d, want 15", page.Total)
	}
	if len(page.Images) != 10 {
		t.Errorf("len(Images) = %d, want 10", len(page.Images))
	}

	rest, err := db.ListImages(context.Background(), user.ID, repository.ImageFilter{}, 10, 10)
	if err != nil {
		t.Fatalf("ListImages() offset error = %v", err)
	}
	if len(rest.Images) != 5 {
		t.Errorf("len(rest) = %d, want 5", len(rest.Images))
	}

	// No row may appear on both pages
	seen := make(map[string]bool)
	for _, img := range page.Images {
		seen[img.ID] = true
	}
	for _, img := range rest.Images {
		if seen[img.ID] {
			t.Errorf("image %s appeared on both pages", img.ID)
		}
	}
}

func TestListImages_FolderFilter(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	folder := createTestFolder(t, db, user.ID, "photos", nil)
	createTestImage(t, db, user.ID, "rooted.png", nil)
	createTestImage(t, db, user.ID, "nested.png", &folder.ID)

	inFolder, err := db.ListImages(context.Background(), user.ID,
		repository.ImageFilter{FolderID: &folder.ID}, 10, 0)
	if err != nil {
		t.Fatalf("ListImages() folder error = %v", err)
	}
	if inFolder.Total != 1 || inFolder.Images[0].Filename != "nested.png" {
		t.Errorf("folder filter returned %+v", inFolder.Images)
	}

	// Empty-string folder ID means root only
	rootOnly := ""
	atRoot, err := db.ListImages(context.Background(), user.ID,
		repository.ImageFilter{FolderID: &rootOnly}, 10, 0)
	if err != nil {
		t.Fatalf("ListImages() root error = %v", err)
	}
	if atRoot.Total != 1 || atRoot.Images[0].Filename != "rooted.png" {
		t.Errorf("root filter returned %+v", atRoot.Images)
	}

	// Nil folder ID means everything
	all, err := db.ListImages(context.Background(), user.ID, repository.ImageFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("ListImages() all error = %v", err)
	}
	if all.Total != 2 {
		t.Errorf("Total = %d, want 2", all.Total)
	}
}

func TestListImages_Search(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	sunset := createTestImage(t, db, user.ID, "aaa.png", nil)
	if err := db.UpdateImageName(context.Background(), user.ID, sunset.ID, "sunset.png"); err != nil {
		t.Fatalf("UpdateImageName() error = %v", err)
	}
	noted := createTestImage(t, db, user.ID, "bbb.png", nil)
	if err := db.UpdateImageNote(context.Background(), user.ID, noted.ID, "taken at sunset"); err != nil {
		t.Fatalf("UpdateImageNote() error = %v", err)
	}
	createTestImage(t, db, user.ID, "ccc.png", nil)

	page, err := db.ListImages(context.Background(), user.ID,
		repository.ImageFilter{Search: "sunset"}, 10, 0)
	if err != nil {
		t.Fatalf("ListImages() search error = %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Total = %d, want 2 (name match + note match)", page.Total)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdateImageName_OtherUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	img := createTestImage(t, db, alice.ID, "abc.png", nil)

	err := db.UpdateImageName(context.Background(), bob.ID, img.ID, "stolen.png")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("UpdateImageName() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateImagePlacement(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	folder := createTestFolder(t, db, user.ID, "archive", nil)
	img := createTestImage(t, db, user.ID, "abc.png", nil)

	err := db.UpdateImagePlacement(context.Background(), user.ID, img.ID, &folder.ID, "archive/abc.png")
	if err != nil {
		t.Fatalf("UpdateImagePlacement() error = %v", err)
	}

	got, _ := db.GetImageByID(context.Background(), user.ID, img.ID)
	if got.FolderID == nil || *got.FolderID != folder.ID {
		t.Errorf("FolderID = %v, want %q", got.FolderID, folder.ID)
	}
	if got.StorageKey != "archive/abc.png" {
		t.Errorf("StorageKey = %q", got.StorageKey)
	}

	// Back to root
	if err := db.UpdateImagePlacement(context.Background(), user.ID, img.ID, nil, "abc.png"); err != nil {
		t.Fatalf("UpdateImagePlacement() to root error = %v", err)
	}
	got, _ = db.GetImageByID(context.Background(), user.ID, img.ID)
	if got.FolderID != nil {
		t.Error("FolderID should be NULL after moving to root")
	}
}

// =========================================================================
// DELETE / COUNT TESTS
// =========================================================================

func TestDeleteImages(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	a := createTestImage(t, db, user.ID, "a.png", nil)
	b := createTestImage(t, db, user.ID, "b.png", nil)

	if err := db.DeleteImages(context.Background(), user.ID, []string{a.ID, b.ID}); err != nil {
		t.Fatalf("DeleteImages() error = %v", err)
	}

	page, _ := db.ListImages(context.Background(), user.ID, repository.ImageFilter{}, 10, 0)
	if page.Total != 0 {
		t.Errorf("Total = %d after delete, want 0", page.Total)
	}
}

func TestCountFolderImages(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")
	folder := createTestFolder(t, db, user.ID, "photos", nil)
	createTestImage(t, db, user.ID, "a.png", &folder.ID)
	createTestImage(t, db, user.ID, "b.png", &folder.ID)
	createTestImage(t, db, user.ID, "c.png", nil)

	count, err := db.CountFolderImages(context.Background(), user.ID, folder.ID)
	if err != nil {
		t.Fatalf("CountFolderImages() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
