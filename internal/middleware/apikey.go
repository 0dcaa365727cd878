package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobreel/jobreel-backend/internal/logger"
)

type APIKeyMiddleware struct {
	log    *logger.Logger
	apiKey string
}

// NewAPIKeyMiddleware guards collaborator endpoints with a shared key.
// An empty key disables the check, for local development only.
func NewAPIKeyMiddleware(log *logger.Logger, apiKey string) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		log:    log.With("Middleware", "APIKeyMiddleware"),
		apiKey: apiKey,
	}
}

func (m *APIKeyMiddleware) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.apiKey == "" {
			c.Next()
			return
		}
		provided := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.apiKey)) != 1 {
			m.log.Warn("rejected request with bad api key", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid api key"})
			return
		}
		c.Next()
	}
}
