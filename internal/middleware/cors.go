// Package middleware contains HTTP middleware functions
package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	allowedMethods = "GET, POST, OPTIONS"
	allowedHeaders = "Content-Type, Authorization"
)

// CORS holds the allowed origins for cross-origin requests.
type CORS struct {
	origins  map[string]bool
	wildcard bool
}

// NewCORS builds the CORS configuration. A "*" entry overrides specific origins.
func NewCORS(allowedOrigins []string, logger *zap.Logger) *CORS {
	c := &CORS{origins: make(map[string]bool)}
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "*" {
			c.wildcard = true
			c.origins = map[string]bool{}
			break
		}
		if trimmed != "" {
			c.origins[trimmed] = true
		}
	}
	if c.wildcard {
		logger.Info("CORS initialized: allowing all origins")
	} else {
		logger.Info("CORS initialized", zap.Strings("origins", allowedOrigins))
	}
	return c
}

// Allows reports whether origin may call the API.
func (c *CORS) Allows(origin string) bool {
	return c.wildcard || c.origins[origin]
}

// Handler wraps next with the CORS headers and preflight handling.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Same-origin and non-browser requests carry no Origin and need no headers.
		if origin == "" {
			if r.Method == http.MethodOptions {
				http.Error(w, "CORS preflight check failed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if !c.Allows(origin) {
			if r.Method == http.MethodOptions {
				http.Error(w, "CORS preflight check failed", http.StatusForbidden)
			} else {
				http.Error(w, "CORS origin not allowed", http.StatusForbidden)
			}
			return
		}

		allowOrigin := "*"
		if !c.wildcard {
			allowOrigin = origin
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
