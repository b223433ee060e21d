package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health and index endpoints; set at build time
var Version = "2.0.0"

var startTime = time.Now()

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store Pinger
	env   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, env string) *HealthHandler {
	return &HealthHandler{
		store: store,
		env:   env,
	}
}

// HandleHealth returns health status with a store check
func (hh *HealthHandler) HandleHealth(c *gin.Context) {
	start := time.Now()
	err := hh.store.Ping(c.Request.Context())
	dbLatency := time.Since(start)

	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"msg":      "Kuroukai Free API is unhealthy",
			"code":     http.StatusServiceUnavailable,
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":         "Kuroukai Free API is running",
		"code":        http.StatusOK,
		"status":      "ok",
		"database":    "connected",
		"db_latency":  dbLatency.String(),
		"uptime":      time.Since(startTime).String(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"version":     Version,
		"environment": hh.env,
	})
}

// HandleReady returns readiness status (for load balancers)
func (hh *HealthHandler) HandleReady(c *gin.Context) {
	if err := hh.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// HandleIndex lists the public endpoints
func (hh *HealthHandler) HandleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"msg":     "Kuroukai Free API",
		"code":    http.StatusOK,
		"version": Version,
		"endpoints": gin.H{
			"POST /api/keys/create":         "Create new access key",
			"GET /api/keys/validate/:keyId": "Validate a key",
			"GET /api/keys/info/:keyId":     "Get key information",
			"GET /api/keys/user/:userId":    "Get all keys for user",
			"GET /bind/:keyId.js":           "Get validation JS file",
			"GET /test/:keyId":              "Test validation with visual interface",
			"GET /health":                   "Health check",
		},
		"documentation": gin.H{
			"github": "https://github.com/Kuroukai/Kuroukai-free-api",
			"readme": "See README.md for detailed usage instructions",
		},
	})
}
