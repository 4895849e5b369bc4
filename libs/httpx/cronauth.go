package httpx

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// WithCronSecret guards cron-triggered endpoints with a shared secret passed
// either as "Authorization: Bearer <secret>" or an "x-cron-secret" header.
// An empty configured secret denies every request rather than allowing all.
func WithCronSecret(secret string) Middleware {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "cron secret not configured", http.StatusUnauthorized)
				return
			}
			presented := strings.TrimSpace(r.Header.Get("x-cron-secret"))
			if presented == "" {
				auth := strings.TrimSpace(r.Header.Get("Authorization"))
				if strings.HasPrefix(auth, "Bearer ") {
					presented = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
				}
			}
			if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
