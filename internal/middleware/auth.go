package middleware

import (
	"net/http"
	"strings"

	"storda-registry/internal/config"
	"storda-registry/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	AccountIDKey = "accountID"
	RoleKey      = "role"
)

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWT.Secret)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set("email", claims.Email)
		c.Set(RoleKey, claims.Role)

		c.Next()
	}
}

// GetAccountID retrieves the authenticated account ID from the Gin context.
func GetAccountID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(AccountIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
