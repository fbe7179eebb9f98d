package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly 250ms on
// current server hardware — negligible per login, expensive per
// brute-force guess. bcrypt salts automatically and embeds salt and cost
// in the digest, so the stored string is self-contained.
const defaultCost = 12

// PasswordService hashes and verifies passwords with bcrypt.
//
// The cost is a struct field (rather than a package constant used
// directly) so tests can inject the bcrypt minimum and skip the ~250ms
// per operation.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService with the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest returns a PasswordService with a caller-chosen
// cost. Use bcrypt.MinCost (4) in tests; never in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash derives a salted bcrypt digest from the plaintext.
//
// bcrypt silently truncates inputs beyond 72 bytes, so longer passwords
// are rejected explicitly instead of being weakened without notice.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored digest.
//
// It returns false — never an error — for a wrong password AND for a
// malformed or truncated digest. Login code treats both identically
// ("invalid username or password"), so distinguishing them would only
// create a second code path to get wrong. bcrypt's comparison is
// constant-time over the hash output.
func (p *PasswordService) Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
