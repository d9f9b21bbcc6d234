package middleware

import (
	"errors"
	"net/http"
	"strings"

	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserKey is the gin context key the authenticated user is stored under.
const UserKey = "currentUser"

// AuthMiddleware creates a Gin middleware that resolves the bearer access
// token to a user and stores it in the request context.
func AuthMiddleware(auth service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			c.Abort()
			return
		}

		user, err := auth.AuthenticateAccess(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, service.ErrInactiveAccount) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Inactive account"})
				c.Abort()
				return
			}
			logger.Warn("Access token rejected", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			c.Abort()
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// BearerToken extracts the bearer credential from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
