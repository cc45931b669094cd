package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/liubx8864/supportloop/internal/pkg/errors"
	"github.com/liubx8864/supportloop/internal/pkg/response"
)

// OwnerIDKey is the gin context key the middleware populates.
const OwnerIDKey = "owner_id"

// Middleware resolves the owner identity from a Bearer token. EventSource
// clients cannot set headers, so an access_token query parameter is accepted
// as a fallback for the SSE endpoint.
func Middleware(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			tokenString = strings.TrimPrefix(header, "Bearer ")
		} else if query := c.Query("access_token"); query != "" {
			tokenString = query
		}

		if tokenString == "" {
			response.ErrorWithCode(c, apperrors.ErrUnauthorized, "missing access token")
			c.Abort()
			return
		}

		claims, err := tm.Parse(tokenString)
		if err != nil {
			response.ErrorWithCode(c, apperrors.ErrUnauthorized, "invalid access token")
			c.Abort()
			return
		}

		c.Set(OwnerIDKey, claims.OwnerID)
		c.Next()
	}
}
