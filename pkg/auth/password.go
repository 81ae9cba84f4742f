package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt ignores everything past 72 bytes
)

// ErrPasswordMismatch is returned when a password does not match its stored hash.
var ErrPasswordMismatch = errors.New("password does not match")

// PasswordValidationError holds validation error details (internal use only)
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	return "invalid password"
}

var commonPasswords = map[string]bool{
	"password":      true,
	"12345678":      true,
	"123456789":     true,
	"qwertyui":      true,
	"password1":     true,
	"password123":   true,
	"iloveyou":      true,
	"letmein1":      true,
	"welcome1":      true,
	"sunshine":      true,
	"football":      true,
	"trustno1":      true,
	"changeme":      true,
	"locker123":     true,
	"smartlocker":   true,
	"abcdefgh":      true,
	"11111111":      true,
	"00000000":      true,
	"passw0rd":      true,
	"administrator": true,
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePassword checks password against a bcrypt hash, or against the
// legacy "salt$sha256hex" format of accounts created before bcrypt.
func ComparePassword(hashedPassword, password string) error {
	if salt, digest, ok := splitLegacyHash(hashedPassword); ok {
		sum := sha256.Sum256([]byte(password + salt))
		if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(digest)) != 1 {
			return ErrPasswordMismatch
		}
		return nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// IsLegacyHash reports whether the stored hash predates bcrypt and should be
// replaced on the next successful login.
func IsLegacyHash(hashedPassword string) bool {
	_, _, ok := splitLegacyHash(hashedPassword)
	return ok
}

func splitLegacyHash(stored string) (salt, digest string, ok bool) {
	// bcrypt hashes start with "$2"
	if strings.HasPrefix(stored, "$") {
		return "", "", false
	}
	salt, digest, ok = strings.Cut(stored, "$")
	if !ok || salt == "" || len(digest) != sha256.Size*2 {
		return "", "", false
	}
	return salt, strings.ToLower(digest), true
}

// ValidatePassword enforces length bounds and rejects well-known passwords.
func ValidatePassword(password string) error {
	errs := make([]string, 0)

	if len(password) < MinPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errs = append(errs, fmt.Sprintf("must be at most %d bytes", MaxPasswordLen))
	}
	if commonPasswords[strings.ToLower(password)] {
		errs = append(errs, "is too common")
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}

	return nil
}
