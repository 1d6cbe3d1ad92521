package middleware

import (
	"github.com/ErlanBelekov/task-tracker/internal/requestid"
	"github.com/gin-gonic/gin"
)

// RequestID keeps a well-formed incoming X-Request-ID and otherwise mints
// a fresh one, then exposes it on the request context and the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestid.Sanitize(c.GetHeader(requestid.Header))
		if id == "" {
			id = requestid.New()
		}
		c.Request = c.Request.WithContext(requestid.NewContext(c.Request.Context(), id))
		c.Header(requestid.Header, id)
		c.Next()
	}
}
