package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/sakif/imagevault/internal/model"
)

// newTestTokenService creates a TokenService with a fixed, known secret so
// tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testUser() *model.User {
	chatID := int64(123456789)
	return &model.User{
		ID:                 "user-abc",
		Username:           "alice",
		ChatID:             &chatID,
		CustomBaseURL:      "https://img.example.com",
		EnableCDN:          true,
		EnableOptimization: false,
		EnableTimePath:     true,
	}
}

// =========================================================================
// CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ValidSecret(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars")
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ISSUE / VERIFY TESTS
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("Issue() token has %d segments, want 3 (header.payload.signature)", len(parts))
	}
}

func TestVerify_RoundTripsAllClaims(t *testing.T) {
	ts := newTestTokenService(t)
	user := testUser()

	token, err := ts.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if claims.UserID() != user.ID {
		t.Errorf("UserID() = %q, want %q", claims.UserID(), user.ID)
	}
	if claims.Username != user.Username {
		t.Errorf("Username = %q, want %q", claims.Username, user.Username)
	}
	if claims.ChatID == nil || *claims.ChatID != *user.ChatID {
		t.Errorf("ChatID = %v, want %v", claims.ChatID, *user.ChatID)
	}
	if claims.CustomBaseURL != user.CustomBaseURL {
		t.Errorf("CustomBaseURL = %q, want %q", claims.CustomBaseURL, user.CustomBaseURL)
	}
	if !claims.EnableCDN || claims.EnableOptimization || !claims.EnableTimePath {
		t.Errorf("flag snapshot = (%v,%v,%v), want (true,false,true)",
			claims.EnableCDN, claims.EnableOptimization, claims.EnableTimePath)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueWithDuration(testUser(), -1*time.Second)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	if _, err := ts.Verify(token); err == nil {
		t.Fatal("Verify() should reject an expired token")
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(testUser())

	// Flip the last signature byte. Base64url uses '-' and 'A' as distinct
	// characters, so swapping between them always changes the signature.
	tampered := token[:len(token)-1]
	if strings.HasSuffix(token, "A") {
		tampered += "B"
	} else {
		tampered += "A"
	}

	if _, err := ts.Verify(tampered); err == nil {
		t.Fatal("Verify() should reject a token with a flipped signature byte")
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue(testUser())
	parts := strings.Split(token, ".")

	// Substitute the payload of a different token — signature no longer matches.
	other, _ := ts.Issue(&model.User{ID: "user-other", Username: "mallory"})
	otherParts := strings.Split(other, ".")

	forged := parts[0] + "." + otherParts[1] + "." + parts[2]
	if _, err := ts.Verify(forged); err == nil {
		t.Fatal("Verify() should reject a token whose payload was swapped")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Issue(testUser())

	other, err := NewTokenService("a-completely-different-secret!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Fatal("Verify() should reject a token signed with a different secret")
	}
}

func TestVerify_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tok := range []string{"", "not-a-jwt", "a.b.c", "...."} {
		if _, err := ts.Verify(tok); err == nil {
			t.Errorf("Verify(%q) should fail", tok)
		}
	}
}
