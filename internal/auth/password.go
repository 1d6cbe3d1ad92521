package auth

import (
	"errors"
	"fmt"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

const (
	PasswordMinLength      = 8
	PasswordMaxLength      = 72 // bcrypt ignores anything past 72 bytes
	PasswordMinEntropyBits = 30
)

// ValidatePasswordStrength rejects passwords that are too short, too long for
// bcrypt, or too predictable. Errors wrap domain.ErrWeakPassword.
func ValidatePasswordStrength(password string) error {
	if len(password) < PasswordMinLength {
		return fmt.Errorf("%w: must be at least %d characters long", domain.ErrWeakPassword, PasswordMinLength)
	}
	if len(password) > PasswordMaxLength {
		return fmt.Errorf("%w: must be at most %d bytes long", domain.ErrWeakPassword, PasswordMaxLength)
	}
	if err := passwordvalidator.Validate(password, PasswordMinEntropyBits); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrWeakPassword, err.Error())
	}
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A malformed hash is an
// error; a plain mismatch is not.
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}
