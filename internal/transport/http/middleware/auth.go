package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	tlog "github.com/ErlanBelekov/task-tracker/internal/log"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized   = "Unauthorized"
	errInternalServer = "Internal server error"

	identityKey = "identity"
)

// Authenticator resolves a bearer access token to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Identity, error)
}

// Auth requires a valid "Authorization: Bearer <access token>" header whose
// user still exists, and stores the resulting identity on the request.
func Auth(authn Authenticator, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		rawToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(rawToken) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		identity, err := authn.Authenticate(c.Request.Context(), strings.TrimSpace(rawToken))
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
				return
			}
			logger.ErrorContext(c.Request.Context(), "authenticate request", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
			return
		}

		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(tlog.WithUserID(c.Request.Context(), identity.UserID))
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Auth. ok is false on routes
// that are not behind Auth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
