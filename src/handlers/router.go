package handlers

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Kuroukai/Kuroukai-free-api/src/middleware"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

// RouterConfig carries everything the HTTP layer needs
type RouterConfig struct {
	Keys *services.KeyService
	Gate *services.AdminAuthGate

	Env          string
	SecureCookie bool
	CORSOrigin   string // "*" or a comma-separated list of origins
	RateLimit    middleware.RateLimitConfig
}

// loginAttempts caps admin logins per client for each rate limit window
const loginAttempts = 10

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID", middleware.SessionHeader},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}

	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	cfg.AllowCredentials = true
	return cfg
}

// NewRouter builds the gin engine with every route registered. The returned
// function stops the rate limiters' background cleanup.
func NewRouter(rc RouterConfig) (*gin.Engine, func()) {
	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(cors.New(corsConfig(rc.CORSOrigin)))
	router.NoRoute(middleware.NotFoundHandler)

	apiLimiter := middleware.NewRateLimiter(rc.RateLimit, middleware.ByClientIP)
	keyLimiter := middleware.NewRateLimiter(rc.RateLimit, middleware.ByParam("keyId"))
	bindLimiter := middleware.NewRateLimiter(rc.RateLimit, middleware.ByParam("script"))
	loginLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Window: rc.RateLimit.Window,
		Max:    loginAttempts,
	}, middleware.ByClientIP)
	stop := func() {
		apiLimiter.Stop()
		keyLimiter.Stop()
		bindLimiter.Stop()
		loginLimiter.Stop()
	}

	healthHandler := NewHealthHandler(rc.Keys, rc.Env)
	keyHandler := NewKeyHandler(rc.Keys)
	bindHandler := NewBindHandler(rc.Keys)
	adminHandler := NewAdminHandler(rc.Gate, rc.Keys, rc.SecureCookie, rc.Env)
	requireAdmin := middleware.AdminAuthMiddleware(rc.Gate)

	// Health and index
	router.GET("/", healthHandler.HandleIndex)
	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/ready", healthHandler.HandleReady)

	// Public key API
	api := router.Group("/api/keys", apiLimiter.Handler())
	{
		api.POST("/create", keyHandler.HandleCreate)
		api.GET("/validate/:keyId", keyLimiter.Handler(), keyHandler.HandleValidate)
		api.GET("/info/:keyId", keyHandler.HandleInfo)
		api.GET("/user/:userId", keyHandler.HandleListByUser)

		// Privileged key management
		api.DELETE("/:keyId", requireAdmin, keyHandler.HandleDelete)
		api.PUT("/:keyId/active", requireAdmin, keyHandler.HandleSetActive)
		api.PUT("/:keyId/expiry", requireAdmin, keyHandler.HandleEditExpiry)
		api.POST("/block/:userId", requireAdmin, keyHandler.HandleBlockUser)
	}

	// Browser binding
	router.GET("/bind/:script", bindLimiter.Handler(), bindHandler.HandleBind)
	router.GET("/test/:keyId", bindHandler.HandleTestPage)

	// Admin authentication
	router.POST("/admin/auth/login", loginLimiter.Handler(), adminHandler.HandleLogin)
	router.POST("/admin/auth/logout", adminHandler.HandleLogout)

	// Admin API (all require a session)
	admin := router.Group("/admin/api", requireAdmin)
	{
		admin.GET("/session", adminHandler.HandleSession)
		admin.GET("/sessions", adminHandler.HandleListSessions)
		admin.DELETE("/sessions", adminHandler.HandleClearSessions)
		admin.GET("/stats", adminHandler.HandleStats)
	}

	return router, stop
}
