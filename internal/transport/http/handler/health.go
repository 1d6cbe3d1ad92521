package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GET /healthcheck is a liveness probe on the public port; dependency checks
// live on the metrics server's /readyz.
func Healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Server healthy and running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
