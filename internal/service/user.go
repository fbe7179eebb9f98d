package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/model"
	"github.com/sakif/imagevault/internal/repository"
)

// userFieldColumns maps the API field names accepted by UpdateField to
// their storage columns. Anything outside this map is rejected; password
// changes in particular go through a separate flow, never here.
var userFieldColumns = map[string]string{
	"username":                  "username",
	"chat_id":                   "chat_id",
	"r2_custom_url":             "custom_base_url",
	"enable_baidu_cdn":          "enable_cdn",
	"enable_image_optimization": "enable_optimization",
	"enable_time_path":          "enable_time_path",
}

// UserService serves profile reads and single-field profile updates.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// Profile returns the current stored profile (not the token snapshot).
func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// UpdateField updates exactly one allow-listed profile field. Values
// arrive as raw JSON so each field can coerce and validate its own type.
func (s *UserService) UpdateField(ctx context.Context, userID, field string, raw json.RawMessage) error {
	column, ok := userFieldColumns[field]
	if !ok {
		return apperror.ValidationFailed("field", "field cannot be updated")
	}

	value, err := s.coerce(ctx, userID, field, raw)
	if err != nil {
		return err
	}

	if err := s.users.UpdateUserField(ctx, userID, column, value); err != nil {
		return err
	}

	s.logger.Info("user field updated",
		slog.String("userID", userID),
		slog.String("field", field),
	)
	return nil
}

func (s *UserService) coerce(ctx context.Context, userID, field string, raw json.RawMessage) (any, error) {
	switch field {
	case "username":
		var username string
		if err := json.Unmarshal(raw, &username); err != nil {
			return nil, apperror.ValidationFailed(field, "username must be a string")
		}
		username = strings.TrimSpace(username)
		if len(username) < 3 {
			return nil, apperror.ValidationFailed(field, "username must be at least 3 characters")
		}
		taken, err := s.users.UsernameTaken(ctx, username, userID)
		if err != nil {
			return nil, apperror.Storage("failed to check username", err)
		}
		if taken {
			return nil, apperror.Conflict("username already exists")
		}
		return username, nil

	case "chat_id":
		// null clears the binding.
		if string(raw) == "null" {
			return nil, nil
		}
		var chatID int64
		if err := json.Unmarshal(raw, &chatID); err != nil {
			return nil, apperror.ValidationFailed(field, "chat_id must be a number")
		}
		ownerID, err := s.users.ChatIDTaken(ctx, chatID)
		if err != nil {
			return nil, apperror.Storage("failed to check chat_id", err)
		}
		if ownerID != "" && ownerID != userID {
			return nil, apperror.Conflict("chat_id is already bound to another account")
		}
		return chatID, nil

	case "r2_custom_url":
		var url string
		if err := json.Unmarshal(raw, &url); err != nil {
			return nil, apperror.ValidationFailed(field, "r2_custom_url must be a string")
		}
		url = strings.TrimSpace(url)
		if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return nil, apperror.ValidationFailed(field, "custom URL must start with http:// or https://")
		}
		return strings.TrimRight(url, "/"), nil

	default: // the three boolean toggles
		var enabled bool
		if err := json.Unmarshal(raw, &enabled); err != nil {
			return nil, apperror.ValidationFailed(field, "value must be a boolean")
		}
		return enabled, nil
	}
}
