package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/domain/models"
	"github.com/relaycrm/backend/pkg/auth"
)

// ContextKeyUser is the gin context key holding the authenticated session
const ContextKeyUser = "user"

// RequireAuth validates the Bearer token and stores the user session in the
// gin context
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "No authorization token provided")
			return
		}

		// Format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		session := &models.UserSession{
			ID:      claims.User.ID,
			OrgID:   claims.User.OrgID,
			Name:    claims.User.Name,
			Email:   claims.User.Email,
			Profile: claims.User.Profile,
		}
		if claims.User.ManagerID != "" {
			managerID := claims.User.ManagerID
			session.ManagerID = &managerID
		}

		c.Set(ContextKeyUser, session)
		c.Next()
	}
}

// RequireOrgAdmin checks that the authenticated user is an org administrator
func RequireOrgAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userInterface, exists := c.Get(ContextKeyUser)
		if !exists {
			abortUnauthorized(c, "User not authenticated")
			return
		}

		user := userInterface.(*models.UserSession)
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Only org administrators can access this resource",
				"code":    "FORBIDDEN",
				"data":    nil,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error":   "Unauthorized",
		"message": message,
		"code":    "UNAUTHORIZED",
		"data":    nil,
	})
	c.Abort()
}
