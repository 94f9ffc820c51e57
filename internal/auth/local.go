package auth

import (
	cryptoRand "crypto/rand"
	"encoding/hex"
	"fmt"
	mathRand "math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// generateID generates a unique identifier
func generateID() string {
	bytes := make([]byte, 16)
	if _, err := cryptoRand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		r := mathRand.New(mathRand.NewSource(time.Now().UnixNano()))
		return fmt.Sprintf("id-%d", r.Int63())
	}
	return hex.EncodeToString(bytes)
}

// generateSessionToken generates an opaque session token
func generateSessionToken() string {
	bytes := make([]byte, 32)
	if _, err := cryptoRand.Read(bytes); err != nil {
		r := mathRand.New(mathRand.NewSource(time.Now().UnixNano()))
		return fmt.Sprintf("session-%d-%d", r.Int63(), time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
