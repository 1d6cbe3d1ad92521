package domain

import (
	"strings"
	"time"
)

type User struct {
	ID              string
	Username        string
	Email           string
	Fullname        string
	PasswordHash    string
	IsEmailVerified bool

	// RefreshToken is the single active refresh token. nil means no session.
	RefreshToken *string

	// Single-use token hashes are always stored together with their expiry.
	EmailVerificationTokenHash *string
	EmailVerificationExpiry    *time.Time
	ForgotPasswordTokenHash    *string
	ForgotPasswordExpiry       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is what the authentication gate attaches to a request.
// It never carries credential material.
type Identity struct {
	UserID   string
	Email    string
	Username string
}

func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email, Username: u.Username}
}

// NormalizeEmail and NormalizeUsername give the canonical, case-folded form
// used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// SingleUsePurpose selects which token pair on the user record a
// single-use token belongs to.
type SingleUsePurpose string

const (
	PurposeEmailVerification SingleUsePurpose = "email_verification"
	PurposePasswordReset     SingleUsePurpose = "password_reset"
)
