package service

import (
	"github.com/bdms/donor-directory/internal/core/domain"
	"golang.org/x/crypto/bcrypt"
)

// MinSecretLength is the minimum accepted length for a donor secret.
const MinSecretLength = 8

// HashSecret derives a salted bcrypt hash from secret. Secrets below the
// minimum length are rejected before any hashing work is done.
func HashSecret(secret string) (string, error) {
	if len(secret) < MinSecretLength {
		return "", domain.NewValidationError("must be at least 8 characters", "secret")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret reports whether secret matches hash. The comparison is
// bcrypt's own and leaks nothing about partial matches.
func VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
