package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"

	// singleUseTokenBytes of randomness, hex encoded on the wire.
	singleUseTokenBytes = 20

	DefaultAccessTTL    = 15 * time.Minute
	DefaultRefreshTTL   = 7 * 24 * time.Hour
	DefaultSingleUseTTL = 20 * time.Minute
)

// AccessClaims is the self-contained identity carried by an access token.
type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() string { return c.Subject }

type refreshClaims struct {
	jwt.RegisteredClaims
}

// SingleUseToken is a freshly minted verification or reset token.
// Raw goes to the user once; only Hash is persisted.
type SingleUseToken struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SingleUseTTL  time.Duration
}

// TokenService issues and validates access, refresh and single-use tokens.
// It holds no state; persisting refresh tokens is the caller's job.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	singleUseTTL  time.Duration
	now           func() time.Time
}

func NewTokenService(cfg TokenConfig) *TokenService {
	s := &TokenService{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		singleUseTTL:  cfg.SingleUseTTL,
		now:           time.Now,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = DefaultAccessTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = DefaultRefreshTTL
	}
	if s.singleUseTTL <= 0 {
		s.singleUseTTL = DefaultSingleUseTTL
	}
	return s
}

// WithClock replaces the time source. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) SingleUseTTL() time.Duration { return s.singleUseTTL }

func (s *TokenService) IssueAccessToken(u *domain.User) (string, error) {
	now := s.now()
	claims := AccessClaims{
		Email:    u.Email,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{audienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs {sub, jti}. The random jti keeps two tokens minted in
// the same second distinct, so rotation always invalidates the previous one.
func (s *TokenService) IssueRefreshToken(u *domain.User) (string, error) {
	now := s.now()
	claims := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{audienceRefresh},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken checks signature, algorithm, audience and expiry.
// Whether the user still exists is checked by the caller.
func (s *TokenService) ValidateAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(token, claims, s.accessSecret, audienceAccess); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefreshToken returns the user ID of a well-formed, unexpired refresh token.
// It does not check revocation; see ValidateRefreshToken.
func (s *TokenService) ParseRefreshToken(token string) (string, error) {
	claims := &refreshClaims{}
	if err := s.parse(token, claims, s.refreshSecret, audienceRefresh); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ValidateRefreshToken additionally requires token to equal the value stored on
// the user record, so a rotated or revoked token fails even before it expires.
func (s *TokenService) ValidateRefreshToken(token string, stored *string) (string, error) {
	userID, err := s.ParseRefreshToken(token)
	if err != nil {
		return "", err
	}
	if stored == nil || subtle.ConstantTimeCompare([]byte(token), []byte(*stored)) != 1 {
		return "", domain.ErrTokenInvalid
	}
	return userID, nil
}

func (s *TokenService) parse(token string, claims jwt.Claims, key []byte, audience string) error {
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return domain.ErrTokenInvalid
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.ErrTokenInvalid
	}
	return nil
}

// GenerateSingleUseToken mints a random token for email verification or
// password reset, valid for the configured single-use TTL.
func (s *TokenService) GenerateSingleUseToken() (SingleUseToken, error) {
	raw := make([]byte, singleUseTokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return SingleUseToken{}, fmt.Errorf("generate token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)
	return SingleUseToken{
		Raw:       rawToken,
		Hash:      HashToken(rawToken),
		ExpiresAt: s.now().Add(s.singleUseTTL),
	}, nil
}

// HashToken is the at-rest form of a single-use token: hex SHA-256.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
