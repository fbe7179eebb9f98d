package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/auth"
	"github.com/sakif/imagevault/internal/model"
	"github.com/sakif/imagevault/internal/repository"
	"github.com/sakif/imagevault/internal/storage"
)

// MaxUploadSize caps a single upload at 10 MiB.
const MaxUploadSize = 10 << 20

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// maxFolderDepth bounds the parent-chain walk when resolving a
	// folder's path, so a corrupted tree cannot loop forever.
	maxFolderDepth = 32
)

// acceptedImageTypes is the declared-MIME allow-list for uploads.
// Validation trusts the declared type; the optimization toggle and any
// sniffing belong to the CDN layer, not this server.
var acceptedImageTypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"image/gif":                true,
	"image/webp":               true,
	"image/svg+xml":            true,
	"image/bmp":                true,
	"image/x-icon":             true,
	"image/vnd.microsoft.icon": true,
	"image/avif":               true,
}

// ImageService owns the upload, listing, and deletion pipelines — the
// only multi-step flows in the system that touch both the metadata store
// and the blob store. The two stores are not transactional with each
// other; each method documents its ordering and its compensation on
// partial failure.
type ImageService struct {
	images  repository.ImageRepository
	folders repository.FolderRepository
	blobs   storage.BlobStore
	baseURL string // default public base URL for links
	logger  *slog.Logger
}

func NewImageService(
	images repository.ImageRepository,
	folders repository.FolderRepository,
	blobs storage.BlobStore,
	baseURL string,
	logger *slog.Logger,
) *ImageService {
	return &ImageService{
		images:  images,
		folders: folders,
		blobs:   blobs,
		baseURL: baseURL,
		logger:  logger,
	}
}

// UploadParams carries one submitted file plus its placement options.
type UploadParams struct {
	Data         io.Reader
	Size         int64
	MimeType     string
	OriginalName string
	Description  string
	FolderID     *string
	// EnableTimePath overrides the user's profile flag when non-nil
	// (the upload form exposes a per-upload toggle).
	EnableTimePath *bool
}

// UploadResult is the persisted record plus its ready-made embed links.
type UploadResult struct {
	Image *model.Image `json:"image"`
	Links Links        `json:"links"`
}

// Upload runs the full pipeline: validate, derive the content key,
// compute the storage path, persist metadata, persist the blob, build
// links.
//
// Ordering is metadata first, blob second. A metadata failure aborts
// before any blob write; a blob failure triggers a compensating delete of
// the just-written row, so no other operation ever lists an image whose
// bytes were never stored. If the compensation itself fails, the orphaned
// row is logged for offline reconciliation — that is the accepted
// residual gap of running two independent stores.
func (s *ImageService) Upload(ctx context.Context, claims *auth.Claims, p UploadParams) (*UploadResult, error) {
	// Validation happens before either store is touched.
	if p.OriginalName == "" || !acceptedImageTypes[p.MimeType] {
		return nil, apperror.ValidationFailed("imgfile", "please select a valid image file")
	}
	if p.Size > MaxUploadSize {
		return nil, apperror.ValidationFailed("imgfile", "file size cannot exceed 10MB")
	}
	if p.FolderID != nil && *p.FolderID == "" {
		p.FolderID = nil
	}

	folderPath, err := s.folderPath(ctx, claims.UserID(), p.FolderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	enableTimePath := claims.EnableTimePath
	if p.EnableTimePath != nil {
		enableTimePath = *p.EnableTimePath
	}
	timePath := ""
	if enableTimePath {
		timePath = now.Format("2006/01/02") + "/"
	}

	// The content key is time-seeded: hash over "<millis>-<name>", not
	// over the file bytes. Identical files uploaded at different instants
	// therefore get distinct keys — there is deliberately no dedup.
	filename := contentFilename(now, p.OriginalName)
	storageKey := folderPath + timePath + filename

	img := &model.Image{
		UserID:       claims.UserID(),
		Filename:     filename,
		OriginalName: p.OriginalName,
		Note:         p.Description,
		FolderID:     p.FolderID,
		StorageKey:   storageKey,
		Size:         p.Size,
		MimeType:     p.MimeType,
	}

	// Step 1 of 2: metadata row. On failure nothing has been written to
	// the blob store, so the abort is clean.
	if err := s.images.CreateImage(ctx, img); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, apperror.Storage("failed to save image metadata", err)
	}

	// Step 2 of 2: the blob itself.
	if err := s.blobs.Put(ctx, storageKey, p.Data, p.Size, p.MimeType); err != nil {
		// Compensate: remove the row so the metadata store never lists
		// an image with no bytes behind it.
		if derr := s.images.DeleteImages(ctx, claims.UserID(), []string{img.ID}); derr != nil {
			s.logger.Error("orphaned metadata row: blob write and compensation both failed",
				slog.String("imageID", img.ID),
				slog.String("storageKey", storageKey),
				slog.String("putError", err.Error()),
				slog.String("deleteError", derr.Error()),
			)
		}
		return nil, apperror.Storage("failed to store file", err)
	}

	s.logger.Info("image uploaded",
		slog.String("userID", claims.UserID()),
		slog.String("storageKey", storageKey),
		slog.Int64("size", p.Size),
	)

	base := linkBase(claims.CustomBaseURL, s.baseURL)
	return &UploadResult{
		Image: img,
		Links: buildLinks(base, storageKey, p.OriginalName),
	}, nil
}

// Delete removes images by content filename, blob first, metadata second.
//
// The inverse ordering from Upload is deliberate: if the blob delete
// fails we abort with the rows intact, so metadata never points at
// nothing. If the metadata delete then fails after the blobs are gone,
// the orphaned BLOBS are logged — an unreferenced object costs storage,
// a dangling reference costs broken pages.
func (s *ImageService) Delete(ctx context.Context, claims *auth.Claims, filenames []string) error {
	if len(filenames) == 0 {
		return apperror.ValidationFailed("files", "no files specified")
	}

	imgs, err := s.images.GetImagesByFilenames(ctx, claims.UserID(), filenames)
	if err != nil {
		return apperror.Storage("failed to resolve files", err)
	}
	if len(imgs) == 0 {
		return apperror.NotFoundOrForbidden("image")
	}

	keys := make([]string, len(imgs))
	ids := make([]string, len(imgs))
	for i, img := range imgs {
		keys[i] = img.StorageKey
		ids[i] = img.ID
	}

	if err := s.blobs.Delete(ctx, keys...); err != nil {
		return apperror.Storage("failed to delete files from storage", err)
	}

	if err := s.images.DeleteImages(ctx, claims.UserID(), ids); err != nil {
		s.logger.Error("orphaned metadata rows: blobs deleted but row delete failed",
			slog.String("userID", claims.UserID()),
			slog.Any("storageKeys", keys),
			slog.String("error", err.Error()),
		)
		return apperror.Storage("failed to delete image records", err)
	}

	s.logger.Info("images deleted",
		slog.String("userID", claims.UserID()),
		slog.Int("count", len(ids)),
	)
	return nil
}

// ListParams selects one page of a user's images.
type ListParams struct {
	Page     int
	PageSize int
	FolderID *string
	Search   string
}

// ImageEntry is one listed image with its embed links.
type ImageEntry struct {
	*model.Image
	Links Links `json:"links"`
}

// Pagination echoes the page window plus totals.
type Pagination struct {
	Current    int `json:"current"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResult is one page of images.
type ListResult struct {
	List       []ImageEntry `json:"list"`
	Pagination Pagination   `json:"pagination"`
}

// List returns offset-paginated images, newest first, optionally filtered
// by folder and by substring search over name and note.
func (s *ImageService) List(ctx context.Context, claims *auth.Claims, p ListParams) (*ListResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	page, err := s.images.ListImages(ctx, claims.UserID(),
		repository.ImageFilter{FolderID: p.FolderID, Search: p.Search},
		p.PageSize, (p.Page-1)*p.PageSize,
	)
	if err != nil {
		return nil, apperror.Storage("failed to list images", err)
	}

	base := linkBase(claims.CustomBaseURL, s.baseURL)
	entries := make([]ImageEntry, len(page.Images))
	for i, img := range page.Images {
		entries[i] = ImageEntry{
			Image: img,
			Links: buildLinks(base, img.StorageKey, img.OriginalName),
		}
	}

	totalPages := (page.Total + p.PageSize - 1) / p.PageSize
	return &ListResult{
		List: entries,
		Pagination: Pagination{
			Current:    p.Page,
			PageSize:   p.PageSize,
			Total:      page.Total,
			TotalPages: totalPages,
		},
	}, nil
}

// Rename changes the display name only; the content filename and storage
// key never change.
func (s *ImageService) Rename(ctx context.Context, claims *auth.Claims, imageID, newName string) error {
	newName = strings.TrimSpace(newName)
	if imageID == "" || newName == "" {
		return apperror.ValidationFailed("newName", "image id and new name are required")
	}
	return s.images.UpdateImageName(ctx, claims.UserID(), imageID, newName)
}

// UpdateNote sets the free-text note; an empty note clears it.
func (s *ImageService) UpdateNote(ctx context.Context, claims *auth.Claims, imageID, note string) error {
	if imageID == "" {
		return apperror.ValidationFailed("imageId", "image id is required")
	}
	return s.images.UpdateImageNote(ctx, claims.UserID(), imageID, note)
}

// Move places images into another folder (nil folderID = root).
//
// When the target folder's path prefix changes the storage key, the blob
// is physically relocated in the order write-new, delete-old,
// update-metadata, so at no point does the only copy of the bytes sit
// behind a key the metadata is about to forget. A failed delete-old
// leaves a logged orphan blob and the move still completes.
func (s *ImageService) Move(ctx context.Context, claims *auth.Claims, imageIDs []string, folderID *string) (int, error) {
	if len(imageIDs) == 0 {
		return 0, apperror.ValidationFailed("imageIds", "no images specified")
	}
	// An empty folder id means the root, same as absent.
	if folderID != nil && *folderID == "" {
		folderID = nil
	}

	targetPath, err := s.folderPath(ctx, claims.UserID(), folderID)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, id := range imageIDs {
		img, err := s.images.GetImageByID(ctx, claims.UserID(), id)
		if err != nil {
			return moved, err
		}

		newKey := targetPath + s.keyRemainder(ctx, claims.UserID(), img)
		if newKey != img.StorageKey {
			if err := s.relocateBlob(ctx, img, newKey); err != nil {
				return moved, err
			}
		}

		if err := s.images.UpdateImagePlacement(ctx, claims.UserID(), id, folderID, newKey); err != nil {
			return moved, err
		}
		moved++
	}

	s.logger.Info("images moved",
		slog.String("userID", claims.UserID()),
		slog.Int("count", moved),
	)
	return moved, nil
}

// StorageList exposes the raw blob-store listing (prefix + cursor), used
// by the storage browser view.
func (s *ImageService) StorageList(ctx context.Context, prefix, cursor string, limit int) (*storage.ObjectPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	page, err := s.blobs.List(ctx, prefix, cursor, limit)
	if err != nil {
		return nil, apperror.Storage("failed to list storage", err)
	}
	return page, nil
}

// relocateBlob copies the object to newKey, then removes the old key.
func (s *ImageService) relocateBlob(ctx context.Context, img *model.Image, newKey string) error {
	obj, err := s.blobs.Get(ctx, img.StorageKey)
	if err != nil {
		return apperror.Storage("failed to read file from storage", err)
	}
	defer obj.Close()

	if err := s.blobs.Put(ctx, newKey, obj, img.Size, img.MimeType); err != nil {
		return apperror.Storage("failed to relocate file", err)
	}

	if err := s.blobs.Delete(ctx, img.StorageKey); err != nil {
		// The new copy is live and metadata will point at it; the stale
		// blob is storage waste, not data loss.
		s.logger.Warn("orphan blob: old key not deleted after relocation",
			slog.String("oldKey", img.StorageKey),
			slog.String("newKey", newKey),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// keyRemainder strips the image's current folder-path prefix from its
// storage key, keeping any time segment and the filename intact so a
// move preserves them.
func (s *ImageService) keyRemainder(ctx context.Context, userID string, img *model.Image) string {
	oldPath, err := s.folderPath(ctx, userID, img.FolderID)
	if err == nil && oldPath != "" && strings.HasPrefix(img.StorageKey, oldPath) {
		return img.StorageKey[len(oldPath):]
	}
	if oldPath == "" {
		return img.StorageKey
	}
	// Folder chain unresolvable (deleted out from under us): keep only
	// the filename.
	return path.Base(img.StorageKey)
}

// folderPath resolves a folder's slash-joined ancestor path ("a/b/c/"),
// or "" for the root. Ownership is checked at every hop.
func (s *ImageService) folderPath(ctx context.Context, userID string, folderID *string) (string, error) {
	if folderID == nil || *folderID == "" {
		return "", nil
	}

	var segments []string
	id := *folderID
	for depth := 0; depth < maxFolderDepth; depth++ {
		folder, err := s.folders.GetFolderByID(ctx, userID, id)
		if err != nil {
			return "", err
		}
		segments = append([]string{folder.Name}, segments...)
		if folder.ParentID == nil {
			return strings.Join(segments, "/") + "/", nil
		}
		id = *folder.ParentID
	}

	return "", fmt.Errorf("service/image: folder tree deeper than %d for folder %s", maxFolderDepth, *folderID)
}

// contentFilename derives the canonical filename: MD5 over
// "<unix-millis>-<originalName>", hex-encoded, plus the original
// extension.
func contentFilename(now time.Time, originalName string) string {
	seed := fmt.Sprintf("%d-%s", now.UnixMilli(), originalName)
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:]) + path.Ext(originalName)
}
