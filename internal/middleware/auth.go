package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"leadmarket/internal/pkg/jwt"
	"leadmarket/internal/pkg/response"
)

// JWTAuth validates the bearer token and stores the caller's identity in the
// gin context: account_id always, provider_id for provider tokens.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("account_id", claims.AccountID)
		if claims.ProviderID != "" {
			c.Set("provider_id", claims.ProviderID)
		}
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireProvider gates the marketplace surface: the token must carry a
// provider identity.
func RequireProvider() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("provider_id") == "" {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Provider account required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole ensures the authenticated account has the given role.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != requiredRole {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
