// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage is the concrete implementation;
// services never import it directly.
//
// Every method that reads or writes user-owned data takes the owning user
// ID and scopes the statement by it — ownership is enforced in the query,
// not by post-filtering. A lookup for a row owned by someone else behaves
// exactly like a lookup for a missing row.
package repository

import (
	"context"

	"github.com/sakif/imagevault/internal/model"
)

// UserRepository persists account records.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UsernameTaken checks uniqueness excluding the given user (pass ""
	// at registration time).
	UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error)
	// ChatIDTaken returns the ID of the user currently bound to the chat
	// id, or "" if it is free.
	ChatIDTaken(ctx context.Context, chatID int64) (string, error)
	// UpdateUserField writes one allow-listed profile column. The column
	// name is validated by the caller against a fixed set; the repository
	// still refuses anything outside that set.
	UpdateUserField(ctx context.Context, userID, field string, value any) error
}

// FolderRepository persists the per-user folder tree.
type FolderRepository interface {
	CreateFolder(ctx context.Context, folder *model.Folder) error
	GetFolderByID(ctx context.Context, userID, id string) (*model.Folder, error)
	ListFolders(ctx context.Context, userID string) ([]*model.Folder, error)
	// CountChildFolders reports how many folders have the given folder as
	// parent; used for the empty-folder deletion check.
	CountChildFolders(ctx context.Context, userID, folderID string) (int, error)
	DeleteFolder(ctx context.Context, userID, id string) error
}

// ImageFilter narrows a paginated image listing.
type ImageFilter struct {
	FolderID *string // nil: any folder; pointer to "": only root
	Search   string  // substring match over original name and note
}

// ImagePage is one page of a listing plus the total matching-row count.
type ImagePage struct {
	Images []*model.Image
	Total  int
}

// ImageRepository persists image metadata rows.
type ImageRepository interface {
	CreateImage(ctx context.Context, img *model.Image) error
	GetImageByID(ctx context.Context, userID, id string) (*model.Image, error)
	// GetImagesByFilenames resolves rows for the given content filenames,
	// scoped to the user. Unknown filenames are silently absent from the
	// result.
	GetImagesByFilenames(ctx context.Context, userID string, filenames []string) ([]*model.Image, error)
	ListImages(ctx context.Context, userID string, filter ImageFilter, limit, offset int) (*ImagePage, error)
	UpdateImageName(ctx context.Context, userID, id, newName string) error
	UpdateImageNote(ctx context.Context, userID, id, note string) error
	// UpdateImagePlacement rewrites folder reference and storage key
	// together after a move (the key embeds the folder path).
	UpdateImagePlacement(ctx context.Context, userID, id string, folderID *string, storageKey string) error
	DeleteImages(ctx context.Context, userID string, ids []string) error
	CountFolderImages(ctx context.Context, userID, folderID string) (int, error)
}
