package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/jewel_catalog/internal/utils"
)

// Context keys set by JWTMiddleware.
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxRole   = "role"
)

// JWTMiddleware authenticates admin requests with a bearer token.
type JWTMiddleware struct {
	rateLimiter *InvalidAuthRateLimiter
}

func NewJWTMiddleware() *JWTMiddleware {
	return &JWTMiddleware{rateLimiter: NewInvalidAuthRateLimiter()}
}

// Handle validates the token and allows only the given roles. No roles means any valid token.
func (m *JWTMiddleware) Handle(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.rateLimiter.Allowed(c.ClientIP()) {
			utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many invalid authentication attempts")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(c, 401, "UNAUTHORIZED", "Missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			m.rateLimiter.Record(c.ClientIP())
			utils.Error(c, 401, "UNAUTHORIZED", "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			m.rateLimiter.Record(c.ClientIP())
			utils.Error(c, 401, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			utils.Error(c, 403, "FORBIDDEN", "Role not allowed to perform this action")
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

// Actor returns the authenticated email, or "anonymous".
func Actor(c *gin.Context) string {
	if email := c.GetString(ctxEmail); email != "" {
		return email
	}
	return "anonymous"
}
