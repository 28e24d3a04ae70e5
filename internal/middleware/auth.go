package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skyview/api/internal/config"
	"skyview/api/internal/identity"
	"skyview/api/internal/models"
	"skyview/api/internal/security"
)

const (
	ContextUser   = "current_user"
	ContextClaims = "access_claims"
)

// Auth resolves the bearer token to a live account. The session check
// makes logout effective immediately even while the JWT is unexpired.
func Auth(cfg *config.AppConfig, provider identity.Provider, sessions identity.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		session, err := sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		if session.UID != claims.UserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session mismatch"})
			return
		}

		account, err := provider.UserByUID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}

		c.Set(ContextClaims, *claims)
		c.Set(ContextUser, account)

		c.Next()
	}
}

// CurrentUser returns the account the auth middleware resolved.
func CurrentUser(c *gin.Context) (models.UserAccount, bool) {
	val, exists := c.Get(ContextUser)
	if !exists {
		return models.UserAccount{}, false
	}
	account, ok := val.(models.UserAccount)
	return account, ok
}
