package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/shared/auth"
	"hemotwin-backend/internal/shared/server/respond"
)

const (
	userEmailKey = "userEmail"
	userNameKey  = "userName"

	// DevUserHeader carries the identity outside production when no token is sent.
	DevUserHeader = "X-User-Email"
)

// Auth validates bearer tokens and stores the lower-cased email identity in the
// context. Outside production the DevUserHeader is accepted instead.
func Auth(env string) gin.HandlerFunc {
	devHeaderAllowed := env != "production"
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader != "" {
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			SetUserEmail(c, claims.Email)
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			c.Next()
			return
		}

		if devHeaderAllowed {
			if email := strings.TrimSpace(c.GetHeader(DevUserHeader)); email != "" {
				SetUserEmail(c, email)
				c.Next()
				return
			}
		}

		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
	}
}

// SetUserEmail stores the normalized identity on the context.
func SetUserEmail(c *gin.Context, email string) {
	c.Set(userEmailKey, strings.ToLower(strings.TrimSpace(email)))
}

// UserEmailFromContext fetches the identity set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// UserNameFromContext fetches the display name from the token, if any.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userNameKey)
}
