package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
)

type UserRepository interface {
	// Create inserts a new user, including any single-use token already set on u.
	// Returns ErrEmailTaken / ErrUsernameTaken on uniqueness violations.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// SetRefreshToken overwrites the stored refresh token; nil revokes it.
	SetRefreshToken(ctx context.Context, userID string, token *string) error

	// RotateRefreshToken replaces oldToken with newToken only if oldToken is still
	// the stored value. Reports whether the swap happened.
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error)

	// SetSingleUseToken stores a token hash and its expiry for the given purpose,
	// replacing any previous token of that purpose.
	SetSingleUseToken(ctx context.Context, userID string, purpose domain.SingleUsePurpose, tokenHash string, expiresAt time.Time) error

	// ConsumeEmailVerification marks the owner of an unexpired verification token
	// as verified and clears the token in the same write.
	ConsumeEmailVerification(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)

	// ConsumePasswordReset swaps in newPasswordHash for the owner of an unexpired
	// reset token, clears the token and revokes the refresh token in the same write.
	ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*domain.User, error)

	// UpdatePassword replaces the password hash and revokes the refresh token.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
