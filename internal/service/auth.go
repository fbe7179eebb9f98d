package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/imagevault/internal/apperror"
	"github.com/sakif/imagevault/internal/auth"
	"github.com/sakif/imagevault/internal/model"
	"github.com/sakif/imagevault/internal/repository"
)

// AuthService handles registration and login.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAuthService(users repository.UserRepository, passwords *auth.PasswordService, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// AuthResult is a signed token plus the authenticated user.
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	if len(username) < 3 {
		return nil, apperror.ValidationFailed("username", "username must be at least 3 characters")
	}
	if len(password) < 6 {
		return nil, apperror.ValidationFailed("password", "password must be at least 6 characters")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperror.Storage("failed to issue token", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", username))
	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials and issues a token. Unknown usernames and
// wrong passwords return the same error so the response does not reveal
// which accounts exist.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, apperror.ValidationFailed("username", "username and password are required")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid username or password")
		}
		return nil, err
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		return nil, apperror.Unauthorized("invalid username or password")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperror.Storage("failed to issue token", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{Token: token, User: user}, nil
}
