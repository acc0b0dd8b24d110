// Package apicors sets CORS headers on the public read API so marketing
// pages served from another origin can fetch their settings.
package apicors

import (
	"net/http"
	"strings"

	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
)

// Middleware returns CORS middleware for GET-only endpoints. With no
// origins, or with "*", any origin may read; otherwise only the listed
// origins get an Access-Control-Allow-Origin header and the browser blocks
// the rest. Credentials are never allowed.
func Middleware(origins ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	anyOrigin := len(origins) == 0
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			anyOrigin = true
		}
		if o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h.Set("Access-Control-Allow-Origin", origin)
				}
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept")
			h.Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				jsonutil.NoContent(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
