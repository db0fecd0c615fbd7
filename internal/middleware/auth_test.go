package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"petwatch/internal/config"

	"github.com/stretchr/testify/assert"
)

func protected(cfg *config.Config) http.Handler {
	return AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
}

func TestAuthMiddleware_NoPasswordDisablesAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	protected(&config.Config{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestAuthMiddleware_PublicPaths(t *testing.T) {
	h := protected(&config.Config{Password: "secret"})
	for _, path := range []string{"/login", "/auth/login", "/api/frames", "/static/app.js"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code, path)
	}
}

func TestAuthMiddleware_RejectsMissingOrWrongCookie(t *testing.T) {
	h := protected(&config.Config{Password: "secret"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: SessionToken("other")})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_AcceptsSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: SessionToken("secret")})
	rec := httptest.NewRecorder()

	protected(&config.Config{Password: "secret"}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
