package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// dummyHash is a bcrypt hash of an unguessable value, compared against when an
// account does not exist so lookup misses take as long as password mismatches.
var dummyHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("claimgate-dummy-comparison-subject"), BcryptCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return "", fmt.Errorf("password must be between %d and %d characters", MinPasswordLen, MaxPasswordLen)
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPassword reports whether the password matches the stored hash
func CheckPassword(password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// CompareDummy runs a bcrypt comparison against a throwaway hash
func CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
