// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the cost the platform has always used for stored hashes.
const DefaultCost = 10

// MaxLength is the longest password, in bytes, bcrypt can hash.
const MaxLength = 72

// ErrTooLong is returned for passwords bcrypt cannot hash.
var ErrTooLong = errors.New("password is too long")

// Hash hashes a plain password. Call it exactly once per password set/change,
// before the record is persisted.
func Hash(plain string) (string, error) {
	return HashWithCost(plain, DefaultCost)
}

func HashWithCost(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plain matches the stored hash.
func Verify(hash, plain string) bool {
	// bcrypt ignores bytes past MaxLength, and Hash never accepted them.
	if hash == "" || len(plain) > MaxLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
