package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/auth"
	"github.com/sakif/imagevault/internal/model"
	"github.com/sakif/imagevault/internal/repository"
	"github.com/sakif/imagevault/internal/storage"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================
//
// In-memory fakes (not a mock framework) keep these tests dependency-free
// and easy to read — you can see exactly what each fake does.

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
	updateErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("username already exists")
		}
	}
	user.ID = fmt.Sprintf("user-fake-id-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFoundOrForbidden("user")
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.NotFoundOrForbidden("user")
}

func (f *fakeUserRepo) UsernameTaken(ctx context.Context, username, excludeUserID string) (bool, error) {
	for id, u := range f.users {
		if u.Username == username && id != excludeUserID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) ChatIDTaken(ctx context.Context, chatID int64) (string, error) {
	for id, u := range f.users {
		if u.ChatID != nil && *u.ChatID == chatID {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeUserRepo) UpdateUserField(ctx context.Context, userID, column string, value any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFoundOrForbidden("user")
	}
	switch column {
	case "username":
		u.Username = value.(string)
	case "chat_id":
		if value == nil {
			u.ChatID = nil
		} else {
			v := value.(int64)
			u.ChatID = &v
		}
	case "custom_base_url":
		u.CustomBaseURL = value.(string)
	case "enable_cdn":
		u.EnableCDN = value.(bool)
	case "enable_optimization":
		u.EnableOptimization = value.(bool)
	case "enable_time_path":
		u.EnableTimePath = value.(bool)
	default:
		return fmt.Errorf("fake: unknown column %q", column)
	}
	return nil
}

// fakeFolderRepo is an in-memory implementation of repository.FolderRepository.
type fakeFolderRepo struct {
	folders map[string]*model.Folder
	nextID  int
	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
}

var _ repository.FolderRepository = (*fakeFolderRepo)(nil)

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[string]*model.Folder), nextID: 1}
}

func (f *fakeFolderRepo) CreateFolder(ctx context.Context, folder *model.Folder) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.folders {
		if existing.UserID == folder.UserID && existing.Name == folder.Name &&
			ptrEq(existing.ParentID, folder.ParentID) {
			return apperror.Conflict("folder name already exists here")
		}
	}
	folder.ID = fmt.Sprintf("folder-fake-id-%d", f.nextID)
	f.nextID++
	folder.CreatedAt = time.Now()
	copied := *folder
	copied.Children = nil
	f.folders[folder.ID] = &copied
	return nil
}

func (f *fakeFolderRepo) GetFolderByID(ctx context.Context, userID, id string) (*model.Folder, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	folder, ok := f.folders[id]
	if !ok || folder.UserID != userID {
		return nil, apperror.NotFoundOrForbidden("folder")
	}
	return folder, nil
}

func (f *fakeFolderRepo) ListFolders(ctx context.Context, userID string) ([]*model.Folder, error) {
	var out []*model.Folder
	for _, folder := range f.folders {
		if folder.UserID == userID {
			copied := *folder
			copied.Children = nil
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeFolderRepo) CountChildFolders(ctx context.Context, userID, folderID string) (int, error) {
	count := 0
	for _, folder := range f.folders {
		if folder.UserID == userID && folder.ParentID != nil && *folder.ParentID == folderID {
			count++
		}
	}
	return count, nil
}

func (f *fakeFolderRepo) DeleteFolder(ctx context.Context, userID, folderID string) error {
	folder, ok := f.folders[folderID]
	if !ok || folder.UserID != userID {
		return apperror.NotFoundOrForbidden("folder")
	}
	delete(f.folders, folderID)
	return nil
}

// fakeImageRepo is an in-memory implementation of repository.ImageRepository.
type fakeImageRepo struct {
	images map[string]*model.Image
	nextID int
	// set to a non-nil error to simulate a database failure
	createErr error
	deleteErr error
	listErr   error
}

var _ repository.ImageRepository = (*fakeImageRepo)(nil)

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{images: make(map[string]*model.Image), nextID: 1}
}

func (f *fakeImageRepo) CreateImage(ctx context.Context, img *model.Image) error {
	if f.createErr != nil {
		return f.createErr
	}
	img.ID = fmt.Sprintf("image-fake-id-%d", f.nextID)
	f.nextID++
	img.CreatedAt = time.Now()
	img.UpdatedAt = img.CreatedAt
	copied := *img
	f.images[img.ID] = &copied
	return nil
}

func (f *fakeImageRepo) GetImageByID(ctx context.Context, userID, id string) (*model.Image, error) {
	img, ok := f.images[id]
	if !ok || img.UserID != userID {
		return nil, apperror.NotFoundOrForbidden("image")
	}
	return img, nil
}

func (f *fakeImageRepo) GetImagesByFilenames(ctx context.Context, userID string, filenames []string) ([]*model.Image, error) {
	var out []*model.Image
	for _, img := range f.images {
		if img.UserID != userID {
			continue
		}
		for _, name := range filenames {
			if img.Filename == name {
				out = append(out, img)
			}
		}
	}
	return out, nil
}

func (f *fakeImageRepo) ListImages(ctx context.Context, userID string, filter repository.ImageFilter, limit, offset int) (*repository.ImagePage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var all []*model.Image
	for _, img := range f.images {
		if img.UserID != userID {
			continue
		}
		if filter.FolderID != nil {
			if *filter.FolderID == "" {
				if img.FolderID != nil {
					continue
				}
			} else if img.FolderID == nil || *img.FolderID != *filter.FolderID {
				continue
			}
		}
		if filter.Search != "" &&
			!strings.Contains(img.OriginalName, filter.Search) &&
			!strings.Contains(img.Note, filter.Search) {
			continue
		}
		all = append(all, img)
	}
	// Newest first, then ID for a stable order within one test run
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return &repository.ImagePage{Images: all, Total: total}, nil
}

func (f *fakeImageRepo) UpdateImageName(ctx context.Context, userID, id, name string) error {
	img, ok := f.images[id]
	if !ok || img.UserID != userID {
		return apperror.NotFoundOrForbidden("image")
	}
	img.OriginalName = name
	return nil
}

func (f *fakeImageRepo) UpdateImageNote(ctx context.Context, userID, id, note string) error {
	img, ok := f.images[id]
	if !ok || img.UserID != userID {
		return apperror.NotFoundOrForbidden("image")
	}
	img.Note = note
	return nil
}

func (f *fakeImageRepo) UpdateImagePlacement(ctx context.Context, userID, id string, folderID *string, storageKey string) error {
	img, ok := f.images[id]
	if !ok || img.UserID != userID {
		return apperror.NotFoundOrForbidden("image")
	}
	img.FolderID = folderID
	img.StorageKey = storageKey
	return nil
}

func (f *fakeImageRepo) DeleteImages(ctx context.Context, userID string, ids []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, id := range ids {
		img, ok := f.images[id]
		if !ok || img.UserID != userID {
			return apperror.NotFoundOrForbidden("image")
		}
		delete(f.images, id)
	}
	return nil
}

func (f *fakeImageRepo) CountFolderImages(ctx context.Context, userID, folderID string) (int, error) {
	count := 0
	for _, img := range f.images {
		if img.UserID == userID && img.FolderID != nil && *img.FolderID == folderID {
			count++
		}
	}
	return count, nil
}

// fakeBlobStore is an in-memory implementation of storage.BlobStore.
type fakeBlobStore struct {
	objects map[string][]byte
	// set to a non-nil error to simulate storage failures
	putErr    error
	getErr    error
	deleteErr error
	listErr   error
}

var _ storage.BlobStore = (*fakeBlobStore)(nil)

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, keys ...string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, key := range keys {
		delete(f.objects, key)
	}
	return nil
}

func (f *fakeBlobStore) List(ctx context.Context, prefix, cursor string, limit int) (*storage.ObjectPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) && key > cursor {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	page := &storage.ObjectPage{Objects: []storage.Object{}}
	for _, key := range keys {
		if len(page.Objects) == limit {
			page.Truncated = true
			page.NextCursor = page.Objects[len(page.Objects)-1].Key
			break
		}
		page.Objects = append(page.Objects, storage.Object{
			Key:  key,
			Size: int64(len(f.objects[key])),
		})
	}
	return page, nil
}

func ptrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptr[T any](v T) *T { return &v }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testClaims builds the token claims the services receive from the auth
// middleware, without going through a real token round trip.
func testClaims(userID string) *auth.Claims {
	c := &auth.Claims{Username: "tester"}
	c.Subject = userID
	return c
}
