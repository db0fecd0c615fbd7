package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"petwatch/internal/config"
)

// SessionCookie is the name of the cookie set after a successful login.
const SessionCookie = "petwatch_session"

// SessionToken derives the cookie value from the configured password.
func SessionToken(password string) string {
	sum := sha256.Sum256([]byte("petwatch:" + password))
	return hex.EncodeToString(sum[:])
}

// public lists paths reachable without a session. /api/frames checks its own token.
func public(path string) bool {
	return path == "/login" ||
		path == "/auth/login" ||
		path == "/api/frames" ||
		strings.HasPrefix(path, "/static/")
}

// AuthMiddleware requires a valid session cookie unless no password is configured.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		want := []byte(SessionToken(cfg.Password))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Password == "" || public(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(SessionCookie)
			if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), want) != 1 {
				// API and AJAX callers get 401, browsers are sent to the login page.
				if strings.HasPrefix(r.URL.Path, "/api/") ||
					r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
					r.Header.Get("Content-Type") == "application/json" {
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
