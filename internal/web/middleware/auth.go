package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/JonMunkholm/sweeper/internal/logging"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-Key"

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// APIKeyAuth checks the X-API-Key header against keys. With no keys
// configured every request passes. Rejections go to reject with
// 401 for a missing key and 403 for a wrong one.
func APIKeyAuth(keys []string, reject func(w http.ResponseWriter, r *http.Request, err error, status int)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get(APIKeyHeader)
			if apiKey == "" {
				logging.FromContext(r.Context()).Warn("auth: missing API key",
					"path", r.URL.Path,
					"ip", ClientIP(r),
				)
				reject(w, r, ErrMissingAPIKey, http.StatusUnauthorized)
				return
			}

			if !isValidAPIKey(apiKey, keys) {
				logging.FromContext(r.Context()).Warn("auth: invalid API key",
					"path", r.URL.Path,
					"ip", ClientIP(r),
				)
				reject(w, r, ErrInvalidAPIKey, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidAPIKey compares against every key in constant time.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
