package handler

import (
	"net/http"
	"strconv"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pathID reads a UUID path parameter. Anything that is not a UUID cannot
// name an existing row, so it is answered with 404 without touching the store.
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if uuid.Validate(id) != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": errInvalidID})
		return "", false
	}
	return id, true
}

// identity is only called on routes behind middleware.Auth.
func identity(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
	}
	return id, ok
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
