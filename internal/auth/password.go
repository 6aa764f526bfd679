package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
	maxUsernameLength = 50
	maxEmailLength    = 100
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9._-]*[a-z0-9])?$`)

// NormalizeUsername returns canonical lowercase username and validates allowed characters.
func NormalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(strings.ToLower(raw))
	if username == "" {
		return "", fmt.Errorf("username is required")
	}
	if len(username) > maxUsernameLength {
		return "", fmt.Errorf("username too long")
	}
	if !usernamePattern.MatchString(username) {
		return "", fmt.Errorf("invalid username")
	}
	return username, nil
}

// NormalizeEmail returns the lowercase bare address of a user email.
func NormalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("email is required")
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", fmt.Errorf("invalid email")
	}
	email := strings.ToLower(addr.Address)
	if len(email) > maxEmailLength {
		return "", fmt.Errorf("email too long")
	}
	return email, nil
}

// ValidatePassword checks minimal password requirements.
// bcrypt only considers the first 72 bytes.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

// HashPassword hashes one plaintext password for persistent storage.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword verifies plaintext password against a bcrypt hash.
func VerifyPassword(passwordHash, candidate string) bool {
	if strings.TrimSpace(passwordHash) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(candidate)) == nil
}
