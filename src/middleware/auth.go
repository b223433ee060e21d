package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Kuroukai/Kuroukai-free-api/src/models"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

const (
	// SessionCookieName carries the admin session token in browsers
	SessionCookieName = "admin_session"

	// SessionHeader carries the admin session token for API clients
	SessionHeader = "X-Admin-Session"

	// AdminSessionKey is the context key for the resolved session
	AdminSessionKey = "admin_session"
)

// SessionToken returns the admin session token from cookie or header
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	return c.GetHeader(SessionHeader)
}

// AdminAuthMiddleware rejects requests without a live admin session
func AdminAuthMiddleware(gate *services.AdminAuthGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			log.Warn().
				Str("request_id", GetRequestID(c)).
				Str("client_ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("admin request without session")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			return
		}

		session, err := gate.RequireSession(token)
		if err != nil {
			log.Warn().
				Str("request_id", GetRequestID(c)).
				Str("client_ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("admin request with invalid or expired session")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired session",
			})
			return
		}

		c.Set(AdminSessionKey, session)
		c.Next()
	}
}

// GetAdminSession returns the session resolved by AdminAuthMiddleware
func GetAdminSession(c *gin.Context) (models.AdminSession, bool) {
	v, ok := c.Get(AdminSessionKey)
	if !ok {
		return models.AdminSession{}, false
	}
	s, ok := v.(models.AdminSession)
	return s, ok
}
