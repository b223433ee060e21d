package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kuroukai/Kuroukai-free-api/src/middleware"
)

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandleLogin(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/admin/auth/login", map[string]string{"password": "wrong-password"}, nil)
	assertStatusCode(t, w, http.StatusUnauthorized)
	assert.Equal(t, false, decode(t, w)["success"])
	assert.Nil(t, findCookie(w.Result().Cookies(), middleware.SessionCookieName))

	w = app.do(http.MethodPost, "/admin/auth/login", map[string]string{"password": testAdminPassword}, nil)
	assertStatusCode(t, w, http.StatusOK)
	response := decode(t, w)
	assert.Equal(t, true, response["success"])

	token, _ := response["sessionToken"].(string)
	require.Len(t, token, 64)

	cookie := findCookie(w.Result().Cookies(), middleware.SessionCookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure, "only secure in production")
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 24*60*60, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)

	_, err := app.gate.RequireSession(token)
	assert.NoError(t, err)
}

func TestHandleLogin_SecureCookieInProduction(t *testing.T) {
	app := newTestAppWith(t, func(rc *RouterConfig) {
		rc.Env = "production"
		rc.SecureCookie = true
	})

	w := app.do(http.MethodPost, "/admin/auth/login", map[string]string{"password": testAdminPassword}, nil)
	assertStatusCode(t, w, http.StatusOK)

	cookie := findCookie(w.Result().Cookies(), middleware.SessionCookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	// logout clears the cookie with the same attributes
	w = app.do(http.MethodPost, "/admin/auth/logout", nil, map[string]string{middleware.SessionHeader: cookie.Value})
	assertStatusCode(t, w, http.StatusOK)
	cleared := findCookie(w.Result().Cookies(), middleware.SessionCookieName)
	require.NotNil(t, cleared)
	assert.True(t, cleared.Secure)
	assert.True(t, cleared.MaxAge < 0)
}

func TestHandleLogin_MissingPassword(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/admin/auth/login", map[string]string{}, nil)
	assertStatusCode(t, w, http.StatusBadRequest)

	w = app.do(http.MethodPost, "/admin/auth/login", nil, nil)
	assertStatusCode(t, w, http.StatusBadRequest)
}

func TestHandleLogout(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)

	w := app.do(http.MethodPost, "/admin/auth/logout", nil, auth)
	assertStatusCode(t, w, http.StatusOK)

	w = app.do(http.MethodGet, "/admin/api/session", nil, auth)
	assertStatusCode(t, w, http.StatusUnauthorized)

	// logging out without a session still succeeds
	w = app.do(http.MethodPost, "/admin/auth/logout", nil, nil)
	assertStatusCode(t, w, http.StatusOK)
}

func TestHandleSession(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)

	w := app.do(http.MethodGet, "/admin/api/session", nil, auth)

	assertStatusCode(t, w, http.StatusOK)
	session := decode(t, w)["session"].(map[string]interface{})
	assert.Equal(t, auth[middleware.SessionHeader], session["id"])
	assert.Equal(t, "127.0.0.1", session["ip"])
}

func TestHandleSession_Expired(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)

	app.clock.Advance(24*time.Hour + time.Second)

	w := app.do(http.MethodGet, "/admin/api/session", nil, auth)
	assertStatusCode(t, w, http.StatusUnauthorized)
}

func TestHandleListSessions(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)
	app.login(t)

	w := app.do(http.MethodGet, "/admin/api/sessions", nil, auth)

	assertStatusCode(t, w, http.StatusOK)
	response := decode(t, w)
	assert.EqualValues(t, 2, response["count"])
	for _, s := range response["sessions"].([]interface{}) {
		id := s.(map[string]interface{})["id"].(string)
		assert.Len(t, id, 11, "session tokens are masked")
	}
}

func TestHandleClearSessions(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)
	other := app.login(t)

	w := app.do(http.MethodDelete, "/admin/api/sessions", nil, auth)
	assertStatusCode(t, w, http.StatusOK)
	response := decode(t, w)
	assert.EqualValues(t, 2, response["count"])
	assert.Equal(t, true, response["logged_out"])

	for _, h := range []map[string]string{auth, other} {
		w = app.do(http.MethodGet, "/admin/api/session", nil, h)
		assertStatusCode(t, w, http.StatusUnauthorized)
	}
}

func TestHandleStats(t *testing.T) {
	app := newTestApp(t)
	auth := app.login(t)
	app.createKey(t, "u1", 1)
	app.createKey(t, "u2", 48)
	app.clock.Advance(2 * time.Hour)

	w := app.do(http.MethodGet, "/admin/api/stats", nil, auth)

	assertStatusCode(t, w, http.StatusOK)
	stats := decode(t, w)["stats"].(map[string]interface{})
	assert.EqualValues(t, 2, stats["total_keys"])
	assert.EqualValues(t, 1, stats["active_keys"])
	assert.EqualValues(t, 1, stats["expired_keys"])
	assert.EqualValues(t, 2, stats["recent_keys"])
	assert.EqualValues(t, 1, stats["active_sessions"])
}

func TestAdminLoginEndToEnd(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/admin/auth/login", map[string]string{"password": "wrong-password"}, nil)
	assertStatusCode(t, w, http.StatusUnauthorized)

	w = app.do(http.MethodPost, "/admin/auth/login", map[string]string{"password": testAdminPassword}, nil)
	assertStatusCode(t, w, http.StatusOK)
	cookie := findCookie(w.Result().Cookies(), middleware.SessionCookieName)
	require.NotNil(t, cookie)

	req := map[string]string{"Cookie": cookie.Name + "=" + cookie.Value}
	w = app.do(http.MethodGet, "/admin/api/session", nil, req)
	assertStatusCode(t, w, http.StatusOK)
}
