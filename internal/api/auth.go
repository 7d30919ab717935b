package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// apiToken extracts the credential from an "Authorization: Bearer <token>"
// header. The scheme name is matched case-insensitively.
func apiToken(r *http.Request) (string, bool) {
	scheme, cred, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	cred = strings.TrimSpace(cred)
	return cred, cred != ""
}

// RequireAPIToken guards the profile and migration routes with the
// server's configured API token. An empty token leaves them open.
func RequireAPIToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := apiToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="solace"`)
				httpError(w, http.StatusUnauthorized, "API token required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="solace", error="invalid_token"`)
				httpError(w, http.StatusUnauthorized, "API token rejected")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
