package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterEntry holds a rate limiter with last used timestamp
type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// keyRateLimiter manages per-key rate limiters with automatic cleanup
type keyRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newKeyRateLimiter(limit rate.Limit, burst int, idle time.Duration) *keyRateLimiter {
	k := &keyRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		idle:     idle,
		stopCh:   make(chan struct{}),
	}
	go k.cleanupLoop()
	return k
}

func (k *keyRateLimiter) allow(key string) bool {
	k.mu.Lock()
	entry, ok := k.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = entry
	}
	entry.lastUsed = time.Now()
	k.mu.Unlock()

	return entry.limiter.Allow()
}

// cleanupLoop drops idle entries every few minutes
func (k *keyRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.cleanup()
		case <-k.stopCh:
			return
		}
	}
}

func (k *keyRateLimiter) cleanup() {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := time.Now().Add(-k.idle)
	for key, entry := range k.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(k.limiters, key)
		}
	}
}

func (k *keyRateLimiter) stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}

// RateLimitConfig allows Max requests per Window for each key
type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

// KeyFunc extracts the bucket a request is counted against
type KeyFunc func(c *gin.Context) string

// ByClientIP buckets requests by client address
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByParam buckets requests by a path parameter, falling back to client IP
func ByParam(name string) KeyFunc {
	return func(c *gin.Context) string {
		if v := c.Param(name); v != "" {
			return name + ":" + v
		}
		return ByClientIP(c)
	}
}

// RateLimiter is a gin middleware with its own set of buckets
type RateLimiter struct {
	limiter *keyRateLimiter
	keyFunc KeyFunc
}

// NewRateLimiter creates a limiter refilling Max tokens evenly over Window
func NewRateLimiter(cfg RateLimitConfig, keyFunc KeyFunc) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Max <= 0 {
		cfg.Max = 100
	}
	if keyFunc == nil {
		keyFunc = ByClientIP
	}

	limit := rate.Every(cfg.Window / time.Duration(cfg.Max))
	return &RateLimiter{
		limiter: newKeyRateLimiter(limit, cfg.Max, 2*cfg.Window),
		keyFunc: keyFunc,
	}
}

// Handler returns the gin middleware
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter.allow(rl.keyFunc(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later.",
				"code":  http.StatusTooManyRequests,
			})
			return
		}
		c.Next()
	}
}

// Stop terminates the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.limiter.stop()
}
