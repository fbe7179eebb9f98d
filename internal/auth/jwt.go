// Package auth provides password hashing, JWT session tokens, and the
// bearer-token middleware for the image host API.
//
// AUTHENTICATION FLOW:
//  1. POST /auth/register or /auth/login verifies credentials and issues
//     a signed JWT carrying the user's identity and a snapshot of their
//     link-building preferences.
//  2. The client sends the token on every request as
//     "Authorization: Bearer <token>".
//  3. RequireAuth validates the token and puts the decoded Claims in the
//     request context; handlers read them with ClaimsFromContext.
//
// The token is stateless — the server keeps no session table. The HMAC
// signature (HS256, server-held secret) makes it tamper-evident, and the
// embedded expiry bounds its lifetime.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/imagevault/internal/model"
)

const issuer = "imagevault"

// defaultTokenTTL is how long an issued session lives. After expiry the
// client must log in again; nothing is refreshed server-side.
const defaultTokenTTL = 24 * time.Hour

// Claims is the JWT payload.
//
// Beyond the registered claims (Subject holds the internal user ID), it
// snapshots the profile fields the frontend needs on every page — custom
// base URL and the CDN/optimization/time-path toggles — so that building
// image links never costs a profile lookup. The snapshot goes stale if
// the profile changes after issue; that staleness is accepted until the
// next login (GET /user/profile returns fresh values for the settings
// page itself).
type Claims struct {
	Username           string `json:"username"`
	ChatID             *int64 `json:"chat_id,omitempty"`
	CustomBaseURL      string `json:"r2_custom_url,omitempty"`
	EnableCDN          bool   `json:"enable_baidu_cdn"`
	EnableOptimization bool   `json:"enable_image_optimization"`
	EnableTimePath     bool   `json:"enable_time_path"`
	jwt.RegisteredClaims
}

// UserID returns the internal user ID carried in the Subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenService signs and verifies session tokens.
// The same secret is used for both operations (symmetric HS256).
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and the
// default 24h token lifetime. The secret should be at least 32 bytes of
// random data in production (e.g. openssl rand -hex 32).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: defaultTokenTTL}, nil
}

// Issue creates a signed token for the given user, snapshotting the
// profile fields described on Claims.
func (s *TokenService) Issue(user *model.User) (string, error) {
	return s.IssueWithDuration(user, s.ttl)
}

// IssueWithDuration creates a token with a custom lifetime. Used by tests
// to mint already-expired tokens.
func (s *TokenService) IssueWithDuration(user *model.User, d time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		Username:           user.Username,
		ChatID:             user.ChatID,
		CustomBaseURL:      user.CustomBaseURL,
		EnableCDN:          user.EnableCDN,
		EnableOptimization: user.EnableOptimization,
		EnableTimePath:     user.EnableTimePath,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and checks a token string, returning its claims.
//
// Any failure — malformed input, bad signature, wrong algorithm, wrong
// issuer, past expiry — comes back as an error; callers treat them all
// as "invalid" and never retry. WithValidMethods pins HS256 so a token
// claiming alg "none" is rejected outright.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return c, nil
}
