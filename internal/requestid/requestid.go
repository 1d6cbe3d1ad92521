package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header carries the request ID in both directions.
const Header = "X-Request-ID"

const maxLen = 64

type ctxKey struct{}

func New() string {
	return uuid.NewString()
}

func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns "" when ctx carries no request ID.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Sanitize returns a client-supplied ID when it is short and made of URL-safe
// characters, and "" otherwise. The result ends up in logs and headers.
func Sanitize(id string) string {
	if id == "" || len(id) > maxLen {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return ""
		}
	}
	return id
}
