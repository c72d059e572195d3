package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth returns middleware that, when token is non-empty, requires
// Authorization: Bearer <token> on every request. A missing or incorrect
// token gets 401 with a JSON-RPC error body so MCP clients can surface it.
// When token is empty, requests pass through unchecked.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			const prefix = "Bearer "
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, prefix) {
				unauthorized(w)
				return
			}
			got := strings.TrimSpace(auth[len(prefix):])
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"unauthorized"}}`))
}
