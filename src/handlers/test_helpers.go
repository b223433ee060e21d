package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kuroukai/Kuroukai-free-api/src/database"
	"github.com/Kuroukai/Kuroukai-free-api/src/middleware"
	"github.com/Kuroukai/Kuroukai-free-api/src/repositories/sqlite"
	"github.com/Kuroukai/Kuroukai-free-api/src/services"
)

// Test helpers for handler tests

const testAdminPassword = "admin-test-password"

// testApp is a fully wired router over an in-memory store and a fake clock
type testApp struct {
	router *gin.Engine
	keys   *services.KeyService
	gate   *services.AdminAuthGate
	clock  *services.FakeClock
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, nil)
}

// newTestAppWith lets a test adjust the router configuration before wiring
func newTestAppWith(t *testing.T, configure func(rc *RouterConfig)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := services.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := sqlite.NewKeyRepository(database.NewMemorySQLite(t))
	keys := services.NewKeyService(repo, services.KeyPolicy{DefaultHours: 24, MaxHours: 168}, clock)
	gate := services.NewAdminAuthGate([]string{testAdminPassword}, services.NewSessionManager(24*time.Hour, clock))

	rc := RouterConfig{
		Keys:       keys,
		Gate:       gate,
		Env:        "test",
		CORSOrigin: "*",
		RateLimit:  middleware.RateLimitConfig{Window: time.Minute, Max: 1000},
	}
	if configure != nil {
		configure(&rc)
	}
	router, stop := NewRouter(rc)
	t.Cleanup(stop)

	return &testApp{router: router, keys: keys, gate: gate, clock: clock}
}

// do performs a request; body is JSON-encoded when not nil
func (a *testApp) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// login returns admin headers for a fresh session
func (a *testApp) login(t *testing.T) map[string]string {
	t.Helper()
	s, err := a.gate.Authenticate(testAdminPassword, "127.0.0.1", "test")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return map[string]string{middleware.SessionHeader: s.ID}
}

// decode parses a JSON response body
func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v (%s)", err, w.Body.String())
	}
	return response
}

// assertStatusCode checks if response status code matches expected
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expectedCode int) {
	t.Helper()
	if w.Code != expectedCode {
		t.Errorf("expected status %d, got %d: %s", expectedCode, w.Code, w.Body.String())
	}
}

// assertJSONError checks if response contains expected error message
func assertJSONError(t *testing.T, w *httptest.ResponseRecorder, expectedError string) {
	t.Helper()
	if got := decode(t, w)["error"]; got != expectedError {
		t.Errorf("expected error '%s', got '%v'", expectedError, got)
	}
}
