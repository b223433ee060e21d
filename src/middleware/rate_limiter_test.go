package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/keys/:keyId", rl.Handler(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiter_ByClientIP(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Window: time.Hour, Max: 2}, ByClientIP)
	defer rl.Stop()
	router := newLimitedRouter(rl)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/keys/a", nil)
		req.RemoteAddr = "198.51.100.1:1234"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected [200 200 429], got %v", codes)
	}

	// another client has its own bucket
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/keys/a", nil)
	req.RemoteAddr = "198.51.100.2:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for second client, got %d", w.Code)
	}
}

func TestRateLimiter_ByParam(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Window: time.Hour, Max: 1}, ByParam("keyId"))
	defer rl.Stop()
	router := newLimitedRouter(rl)

	get := func(path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	if got := get("/keys/a"); got != http.StatusOK {
		t.Errorf("expected 200, got %d", got)
	}
	if got := get("/keys/a"); got != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", got)
	}
	if got := get("/keys/b"); got != http.StatusOK {
		t.Errorf("expected 200 for a different key, got %d", got)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{}, nil)
	rl.Stop()
	rl.Stop()
}
