package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	ResetTokenLen  = 32 // bytes, hex encoded to 64 chars
	MinPasswordLen = 6
	MaxPasswordLen = 72 // bcrypt ignores anything past 72 bytes
)

var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes", MaxPasswordLen)
)

func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, BcryptCost)
}

// HashPasswordWithCost lets tests trade strength for speed.
func HashPasswordWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePassword rejects candidates longer than MaxPasswordLen outright;
// bcrypt would otherwise compare only their first 72 bytes.
func ComparePassword(hashedPassword, password string) error {
	if len(password) > MaxPasswordLen {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword enforces the length rules shared by registration, profile
// updates and password resets.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLen {
		return ErrPasswordTooLong
	}
	return nil
}

// GenerateRandomToken returns n random bytes, hex encoded.
func GenerateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateResetToken returns a fresh password reset token.
func GenerateResetToken() (string, error) {
	return GenerateRandomToken(ResetTokenLen)
}

// HashToken is the at-rest form of a bearer secret such as a reset token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
