package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kuroukai/Kuroukai-free-api/src/middleware"
	"github.com/Kuroukai/Kuroukai-free-api/src/models"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

// AdminHandler handles admin authentication and session management
type AdminHandler struct {
	gate         *services.AdminAuthGate
	keys         *services.KeyService
	secureCookie bool
	env          string
}

// NewAdminHandler creates a new admin handler. secureCookie marks the
// session cookie Secure and should be set in production.
func NewAdminHandler(gate *services.AdminAuthGate, keys *services.KeyService, secureCookie bool, env string) *AdminHandler {
	return &AdminHandler{
		gate:         gate,
		keys:         keys,
		secureCookie: secureCookie,
		env:          env,
	}
}

// LoginRequest is the body of POST /admin/auth/login
type LoginRequest struct {
	Password string `json:"password"`
}

func (ah *AdminHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, value, maxAge, "/", "", ah.secureCookie, true)
}

// maskSessionID keeps enough of a token to tell sessions apart
func maskSessionID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

// HandleLogin exchanges an admin password for a session
func (ah *AdminHandler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	_ = c.ShouldBindJSON(&req)

	session, err := ah.gate.Authenticate(req.Password, c.ClientIP(), c.Request.UserAgent())
	switch {
	case errors.Is(err, services.ErrPasswordRequired):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Password required"})
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid password"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create session"})
		return
	}

	ah.setSessionCookie(c, session.ID, int(ah.gate.Sessions().TTL()/time.Second))
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Authentication successful",
		"sessionToken": session.ID,
	})
}

// HandleLogout revokes the caller's session, if any
func (ah *AdminHandler) HandleLogout(c *gin.Context) {
	if token := middleware.SessionToken(c); token != "" {
		ah.gate.Logout(token)
		ah.setSessionCookie(c, "", -1)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// HandleSession describes the caller's own session
func (ah *AdminHandler) HandleSession(c *gin.Context) {
	session, _ := middleware.GetAdminSession(c)
	ttl := ah.gate.Sessions().TTL()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": gin.H{
			"id":        session.ID,
			"createdAt": session.CreatedAt,
			"expiresAt": session.ExpiresAt(ttl),
			"ip":        session.IP,
		},
	})
}

// HandleListSessions lists live sessions with masked tokens
func (ah *AdminHandler) HandleListSessions(c *gin.Context) {
	sessions := ah.gate.Sessions().List()

	out := make([]models.AdminSession, 0, len(sessions))
	for _, s := range sessions {
		s.ID = maskSessionID(s.ID)
		out = append(out, s)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": out,
		"count":    len(out),
	})
}

// HandleClearSessions logs out every admin, including the caller
func (ah *AdminHandler) HandleClearSessions(c *gin.Context) {
	n := ah.gate.Sessions().ClearAll()
	ah.setSessionCookie(c, "", -1)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    fmt.Sprintf("Cleared %d sessions", n),
		"count":      n,
		"logged_out": true,
	})
}

// HandleStats returns key counts for the dashboard
func (ah *AdminHandler) HandleStats(c *gin.Context) {
	stats, err := ah.keys.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Error retrieving statistics",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"total_keys":      stats.TotalKeys,
			"active_keys":     stats.ActiveKeys,
			"expired_keys":    stats.ExpiredKeys,
			"recent_keys":     stats.RecentKeys,
			"active_sessions": len(ah.gate.Sessions().List()),
			"uptime":          time.Since(startTime).Seconds(),
			"environment":     ah.env,
		},
	})
}
