package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, fullname, password_hash, is_email_verified,
	refresh_token, email_verification_token_hash, email_verification_expiry,
	forgot_password_token_hash, forgot_password_expiry, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (
			username, email, fullname, password_hash, is_email_verified,
			email_verification_token_hash, email_verification_expiry
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		u.Username, u.Email, u.Fullname, u.PasswordHash, u.IsEmailVerified,
		u.EmailVerificationTokenHash, u.EmailVerificationExpiry,
	)

	created, err := scanUser(row)
	if err != nil {
		if name, ok := constraintViolation(err, codeUniqueViolation); ok {
			if name == "users_username_key" {
				return nil, domain.ErrUsernameTaken
			}
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, userID string, token *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $2, updated_at = NOW() WHERE id = $1`,
		userID, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// RotateRefreshToken is a compare-and-swap, so two concurrent refreshes with
// the same token cannot both win.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET refresh_token = $3, updated_at = NOW()
		 WHERE id = $1 AND refresh_token = $2`,
		userID, oldToken, newToken)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) SetSingleUseToken(ctx context.Context, userID string, purpose domain.SingleUsePurpose, tokenHash string, expiresAt time.Time) error {
	var query string
	switch purpose {
	case domain.PurposeEmailVerification:
		query = `UPDATE users
			SET email_verification_token_hash = $2, email_verification_expiry = $3, updated_at = NOW()
			WHERE id = $1`
	case domain.PurposePasswordReset:
		query = `UPDATE users
			SET forgot_password_token_hash = $2, forgot_password_expiry = $3, updated_at = NOW()
			WHERE id = $1`
	default:
		return fmt.Errorf("unknown token purpose %q", purpose)
	}

	tag, err := r.pool.Exec(ctx, query, userID, tokenHash, expiresAt)
	if err != nil {
		return fmt.Errorf("set %s token: %w", purpose, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeEmailVerification matches and clears the token in one statement, so
// two concurrent requests with the same token cannot both succeed.
func (r *UserRepository) ConsumeEmailVerification(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET    is_email_verified             = TRUE,
		       email_verification_token_hash = NULL,
		       email_verification_expiry     = NULL,
		       updated_at                    = NOW()
		WHERE  email_verification_token_hash = $1
		  AND  email_verification_expiry     > $2
		RETURNING `+userColumns, tokenHash, now)

	return consumed(scanUser(row))
}

func (r *UserRepository) ConsumePasswordReset(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET    password_hash              = $3,
		       forgot_password_token_hash = NULL,
		       forgot_password_expiry     = NULL,
		       refresh_token              = NULL,
		       updated_at                 = NOW()
		WHERE  forgot_password_token_hash = $1
		  AND  forgot_password_expiry     > $2
		RETURNING `+userColumns, tokenHash, now, newPasswordHash)

	return consumed(scanUser(row))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, refresh_token = NULL, updated_at = NOW() WHERE id = $1`,
		userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// consumed turns "no matching row" into a token error: the hash is unknown,
// already used, or expired, and callers must not learn which.
func consumed(u *domain.User, err error) (*domain.User, error) {
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrTokenNotFound
	}
	return u, err
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Fullname, &u.PasswordHash, &u.IsEmailVerified,
		&u.RefreshToken, &u.EmailVerificationTokenHash, &u.EmailVerificationExpiry,
		&u.ForgotPasswordTokenHash, &u.ForgotPasswordExpiry, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
