package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rahulvalluru1-source/fieldtrack/internal/auth"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
)

const (
	KeyUserID   = "user_id"
	KeyUserName = "user_name"
	KeyRole     = "role"
)

// AuthRequired accepts a Bearer token, or a token query parameter for
// websocket upgrades where browsers cannot set headers.
func AuthRequired(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tok = strings.TrimPrefix(h, "Bearer ")
		} else {
			tok = c.Query("token")
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
			return
		}

		claims, err := issuer.Validate(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUserName, claims.Name)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "admin only"})
			return
		}
		c.Next()
	}
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(KeyRole) == string(models.RoleAdmin)
}
