package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/pagecms/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

type ctxKey string

const apiClientKey ctxKey = "api_client"

// APIKeyAuth returns middleware that validates API key authentication for
// requests that present one.
//
// The key travels in the Authorization header using the Bearer scheme:
// "Authorization: Bearer <api-key>". Requests without the header are
// browser requests and pass through untouched (they are protected by CSRF
// instead). Requests with the header must carry the configured key.
//
// Usage in routes.go:
//
//	r.Use(auth.APIKeyAuth(appCfg.APIKey, logger))
//	r.Use(csrfMiddleware) // skips requests where auth.IsAPIClient(r)
//
// If the API key is invalid, returns 401 Unauthorized as {"error": message}.
// If the API key is not configured (empty), every Bearer request is rejected.
func APIKeyAuth(validKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	if validKey == "" {
		logger.Warn("API key not configured - all Bearer requests will be rejected")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			if validKey == "" {
				logger.Warn("API request rejected: API key not configured",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				jsonutil.Unauthorized(w, "API authentication not configured")
				return
			}

			// Expect "Bearer <api-key>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Debug("API request rejected: invalid Authorization format",
					zap.String("path", r.URL.Path),
				)
				jsonutil.Unauthorized(w, "Invalid Authorization format (expected: Bearer <api-key>)")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(validKey)) != 1 {
				logger.Warn("API request rejected: invalid API key",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				jsonutil.Unauthorized(w, "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), apiClientKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsAPIClient reports whether the request was authenticated with the API key.
func IsAPIClient(r *http.Request) bool {
	v, _ := r.Context().Value(apiClientKey).(bool)
	return v
}
