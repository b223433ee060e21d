package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newRequestIDRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/test", func(c *gin.Context) {
		requestID := GetRequestID(c)
		if requestID == "" {
			t.Error("expected request_id to be set in context")
		}
		c.JSON(http.StatusOK, gin.H{"request_id": requestID})
	})
	return router
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	router := newRequestIDRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	// Should be 8 characters (short UUID)
	if got := w.Header().Get("X-Request-ID"); len(got) != 8 {
		t.Errorf("expected request_id length 8, got %q", got)
	}
}

func TestRequestIDMiddleware_UsesExistingID(t *testing.T) {
	router := newRequestIDRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "upstream-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "upstream-123" {
		t.Errorf("expected upstream-123, got %q", got)
	}
}

func TestRequestIDMiddleware_RejectsUnsafeID(t *testing.T) {
	router := newRequestIDRouter(t)

	for _, bad := range []string{strings.Repeat("a", 65), "has space"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-ID", bad)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got == bad || len(got) != 8 {
			t.Errorf("expected %q to be replaced, got %q", bad, got)
		}
	}
}
