package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/model"
	"github.com/sakif/imagevault/internal/repository"
)

// FolderService manages the per-user folder tree.
type FolderService struct {
	folders repository.FolderRepository
	images  repository.ImageRepository
	logger  *slog.Logger
}

func NewFolderService(folders repository.FolderRepository, images repository.ImageRepository, logger *slog.Logger) *FolderService {
	return &FolderService{folders: folders, images: images, logger: logger}
}

// Create adds a folder under parentID (nil = root). The parent must exist
// and belong to the user; sibling names are unique, enforced by the
// repository so concurrent creates cannot race past the check.
func (s *FolderService) Create(ctx context.Context, userID, name string, parentID *string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "folder name is required")
	}
	if strings.ContainsAny(name, "/\\") {
		return nil, apperror.ValidationFailed("name", "folder name cannot contain slashes")
	}

	if parentID != nil && *parentID != "" {
		if _, err := s.folders.GetFolderByID(ctx, userID, *parentID); err != nil {
			return nil, err
		}
	} else {
		parentID = nil
	}

	folder := &model.Folder{
		UserID:   userID,
		Name:     name,
		ParentID: parentID,
	}
	if err := s.folders.CreateFolder(ctx, folder); err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		slog.String("userID", userID),
		slog.String("folderID", folder.ID),
	)
	return folder, nil
}

// List returns the user's folders assembled into a tree of root folders
// with nested children, siblings sorted by name.
func (s *FolderService) List(ctx context.Context, userID string) ([]*model.Folder, error) {
	folders, err := s.folders.ListFolders(ctx, userID)
	if err != nil {
		return nil, apperror.Storage("failed to list folders", err)
	}

	byID := make(map[string]*model.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}

	roots := make([]*model.Folder, 0)
	for _, f := range folders {
		if f.ParentID == nil {
			roots = append(roots, f)
			continue
		}
		parent, ok := byID[*f.ParentID]
		if !ok {
			// Parent row missing (should not happen with FK enforcement);
			// surface the subtree at the root rather than dropping it.
			roots = append(roots, f)
			continue
		}
		parent.Children = append(parent.Children, f)
	}

	return roots, nil
}

// Delete removes a folder only when it is empty: no child folders and no
// images. The existence check and the emptiness checks are all scoped to
// the user, so an unowned folder reads the same as a missing one.
func (s *FolderService) Delete(ctx context.Context, userID, folderID string) error {
	if folderID == "" {
		return apperror.ValidationFailed("folderId", "folder id is required")
	}

	if _, err := s.folders.GetFolderByID(ctx, userID, folderID); err != nil {
		return err
	}

	children, err := s.folders.CountChildFolders(ctx, userID, folderID)
	if err != nil {
		return apperror.Storage("failed to check folder contents", err)
	}
	if children > 0 {
		return apperror.Conflict("folder contains subfolders, please delete them first")
	}

	images, err := s.images.CountFolderImages(ctx, userID, folderID)
	if err != nil {
		return apperror.Storage("failed to check folder contents", err)
	}
	if images > 0 {
		return apperror.Conflict("folder contains images, please delete or move them first")
	}

	if err := s.folders.DeleteFolder(ctx, userID, folderID); err != nil {
		return err
	}

	s.logger.Info("folder deleted",
		slog.String("userID", userID),
		slog.String("folderID", folderID),
	)
	return nil
}
