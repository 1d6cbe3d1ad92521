package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/auth"
	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/email"
	"github.com/ErlanBelekov/task-tracker/internal/metrics"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
)

type AuthConfig struct {
	// BaseURL is where this API is reachable; verification links point at it.
	BaseURL string
	// ClientURL hosts the reset-password form.
	ClientURL string
}

type AuthUsecase struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	mailer    email.Sender
	templates *email.Templates
	cfg       AuthConfig
	now       func() time.Time
	logger    *slog.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	tokens *auth.TokenService,
	mailer email.Sender,
	templates *email.Templates,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthUsecase {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	return &AuthUsecase{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		templates: templates,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With("component", "auth"),
	}
}

// WithClock replaces the time source used for single-use token expiry checks.
func (u *AuthUsecase) WithClock(now func() time.Time) *AuthUsecase {
	u.now = now
	return u
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
	Fullname string
}

// Session is what a successful login or refresh hands back to the client.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *domain.User
}

// Register creates an unverified account and emails a verification link.
// A failed email does not undo the registration; the user can ask for a resend.
func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (user *domain.User, err error) {
	defer func() { recordAuth("register", err) }()

	if err = auth.ValidatePasswordStrength(in.Password); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	tok, err := u.tokens.GenerateSingleUseToken()
	if err != nil {
		return nil, err
	}

	user, err = u.users.Create(ctx, &domain.User{
		Username:                   domain.NormalizeUsername(in.Username),
		Email:                      domain.NormalizeEmail(in.Email),
		Fullname:                   strings.TrimSpace(in.Fullname),
		PasswordHash:               hash,
		EmailVerificationTokenHash: &tok.Hash,
		EmailVerificationExpiry:    &tok.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	u.sendVerification(ctx, user, tok.Raw)
	return user, nil
}

// VerifyEmail consumes a verification token. Reuse, expiry and unknown
// tokens all fail the same way.
func (u *AuthUsecase) VerifyEmail(ctx context.Context, rawToken string) (err error) {
	defer func() { recordAuth("verify_email", err) }()

	if rawToken == "" {
		return domain.ErrTokenNotFound
	}
	if _, err = u.users.ConsumeEmailVerification(ctx, auth.HashToken(rawToken), u.now()); err != nil {
		if domain.IsSingleUseTokenError(err) {
			return err
		}
		return fmt.Errorf("consume verification token: %w", err)
	}
	return nil
}

// ResendVerification replaces any outstanding verification token. Unknown and
// already-verified addresses succeed silently so the endpoint cannot be used
// to probe for accounts.
func (u *AuthUsecase) ResendVerification(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.IsEmailVerified {
		return nil
	}

	tok, err := u.tokens.GenerateSingleUseToken()
	if err != nil {
		return err
	}
	if err := u.users.SetSingleUseToken(ctx, user.ID, domain.PurposeEmailVerification, tok.Hash, tok.ExpiresAt); err != nil {
		return fmt.Errorf("store verification token: %w", err)
	}
	u.sendVerification(ctx, user, tok.Raw)
	return nil
}

// Login checks the password before the verification flag, so an unverified
// account is only revealed to someone who knows its password.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (s *Session, err error) {
	defer func() { recordAuth("login", err) }()

	user, err := u.users.FindByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// burn the same bcrypt time as a real check
			_, _ = auth.CheckPassword(dummyHash(), password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsEmailVerified {
		return nil, domain.ErrEmailNotVerified
	}

	access, refresh, err := u.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := u.users.SetRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// RefreshSession exchanges a refresh token for a new pair. The presented
// token stops working the moment the new one is stored.
func (u *AuthUsecase) RefreshSession(ctx context.Context, refreshToken string) (s *Session, err error) {
	defer func() { recordAuth("refresh", err) }()

	userID, err := u.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if _, err := u.tokens.ValidateRefreshToken(refreshToken, user.RefreshToken); err != nil {
		return nil, domain.ErrTokenInvalid
	}

	access, refresh, err := u.issuePair(user)
	if err != nil {
		return nil, err
	}
	rotated, err := u.users.RotateRefreshToken(ctx, user.ID, refreshToken, refresh)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !rotated {
		// a concurrent refresh or logout got there first
		return nil, domain.ErrTokenInvalid
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Logout revokes the stored refresh token. Access tokens already issued stay
// valid until they expire.
func (u *AuthUsecase) Logout(ctx context.Context, userID string) (err error) {
	defer func() { recordAuth("logout", err) }()

	if err = u.users.SetRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// ForgotPassword emails a reset link. Unknown addresses succeed silently.
func (u *AuthUsecase) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := u.users.FindByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	tok, err := u.tokens.GenerateSingleUseToken()
	if err != nil {
		return err
	}
	if err := u.users.SetSingleUseToken(ctx, user.ID, domain.PurposePasswordReset, tok.Hash, tok.ExpiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := u.cfg.ClientURL + "/reset-password?token=" + url.QueryEscape(tok.Raw)
	msg, err := u.templates.PasswordReset(user.Username, link, u.tokens.SingleUseTTL())
	if err != nil {
		return err
	}
	if err := deliver(ctx, u.mailer, "password_reset", user.Email, msg); err != nil {
		u.logger.ErrorContext(ctx, "send password reset email", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password and ends every
// session in one write.
func (u *AuthUsecase) ResetPassword(ctx context.Context, rawToken, newPassword string) (err error) {
	defer func() { recordAuth("reset_password", err) }()

	if err = auth.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	if rawToken == "" {
		return domain.ErrTokenNotFound
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err = u.users.ConsumePasswordReset(ctx, auth.HashToken(rawToken), hash, u.now()); err != nil {
		if domain.IsSingleUseTokenError(err) {
			return err
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	return nil
}

// ChangePassword requires the current password and revokes the refresh token,
// so other devices have to log in again.
func (u *AuthUsecase) ChangePassword(ctx context.Context, userID, current, next string) (err error) {
	defer func() { recordAuth("change_password", err) }()

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	ok, err := auth.CheckPassword(user.PasswordHash, current)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}
	if err = auth.ValidatePasswordStrength(next); err != nil {
		return err
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err = u.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer access token to the identity of a user that
// still exists. Every token failure is ErrUnauthorized.
func (u *AuthUsecase) Authenticate(ctx context.Context, accessToken string) (domain.Identity, error) {
	claims, err := u.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	user, err := u.users.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Identity{}, domain.ErrUnauthorized
		}
		return domain.Identity{}, fmt.Errorf("find user: %w", err)
	}
	return user.Identity(), nil
}

func (u *AuthUsecase) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (u *AuthUsecase) issuePair(user *domain.User) (string, string, error) {
	access, err := u.tokens.IssueAccessToken(user)
	if err != nil {
		return "", "", err
	}
	refresh, err := u.tokens.IssueRefreshToken(user)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (u *AuthUsecase) sendVerification(ctx context.Context, user *domain.User, rawToken string) {
	link := u.cfg.BaseURL + "/api/v1/auth/verify-email?token=" + url.QueryEscape(rawToken)
	msg, err := u.templates.Verification(user.Username, link, u.tokens.SingleUseTTL())
	if err == nil {
		err = deliver(ctx, u.mailer, "verification", user.Email, msg)
	}
	if err != nil {
		u.logger.ErrorContext(ctx, "send verification email", "user_id", user.ID, "error", err)
	}
}

func recordAuth(event string, err error) {
	metrics.AuthEventsTotal.WithLabelValues(event, metrics.Outcome(err)).Inc()
}

var (
	dummyOnce sync.Once
	dummy     string
)

// dummyHash is a valid bcrypt hash compared against when the email is unknown.
func dummyHash() string {
	dummyOnce.Do(func() {
		dummy, _ = auth.HashPassword("unknown-account-placeholder")
	})
	return dummy
}
