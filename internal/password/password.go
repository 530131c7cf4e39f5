// Package password wraps bcrypt for one-way hashing and verification of
// plaintext passwords.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest plaintext, in bytes, that bcrypt accepts.
const MaxLength = 72

// Hasher hashes and verifies passwords with a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// New returns a Hasher using the given bcrypt cost. Values outside
// [bcrypt.MinCost, bcrypt.MaxCost] are rejected.
func New(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf(
			"in internal/password/password.go/New(): bcrypt cost %d is out of range [%d, %d]",
			cost,
			bcrypt.MinCost,
			bcrypt.MaxCost,
		)
	}

	return &Hasher{cost: cost}, nil
}

// Hash returns a salted bcrypt digest of plaintext. The salt and the cost are
// embedded into the returned string.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf(
			"in internal/password/password.go/Hash(): error while `bcrypt.GenerateFromPassword()` calling: %w",
			err,
		)
	}

	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest simply
// does not match.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// FitsBcrypt reports whether plaintext is short enough to be hashed.
func FitsBcrypt(plaintext string) bool {
	return len(plaintext) <= MaxLength
}
