package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alumni-chat-service/internal/auth"
)

// Context keys populated for authenticated requests.
const (
	UserIDKey      = "userID"
	UserNameKey    = "userName"
	UserCollegeKey = "userCollege"
)

// AuthMiddleware validates the Authorization header and stores the resolved
// identity tuple on the request context.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserNameKey, claims.Name)
		c.Set(UserCollegeKey, claims.College)
		c.Next()
	}
}
