// Package middleware provides HTTP middleware for apischema.App.WithMiddleware.
package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig configures CORS. Empty lists take the defaults noted on each
// field.
type CORSConfig struct {
	// AllowOrigins lists the origins allowed to call the API. "*" allows
	// every origin. Default: ["*"].
	AllowOrigins []string

	// AllowMethods default: ["GET", "POST", "OPTIONS"].
	AllowMethods []string

	// AllowHeaders default: ["Content-Type", "Authorization"].
	AllowHeaders []string

	ExposeHeaders    []string
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header.
	MaxAge int
}

// CORSAllowAll is a permissive configuration for development.
var CORSAllowAll = CORSConfig{}

// CORS answers preflight requests and sets CORS headers on every other
// request from an allowed origin.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	origins := orDefault(cfg.AllowOrigins, "*")
	methods := strings.Join(orDefault(cfg.AllowMethods, http.MethodGet, http.MethodPost, http.MethodOptions), ", ")
	headers := strings.Join(orDefault(cfg.AllowHeaders, "Content-Type", "Authorization"), ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")
	wildcard := slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			h := w.Header()
			h.Add("Vary", "Origin")

			if wildcard || (origin != "" && slices.Contains(origins, origin)) {
				// A credentialed response may not use "*".
				if origin != "" && (!wildcard || cfg.AllowCredentials) {
					h.Set("Access-Control-Allow-Origin", origin)
				} else {
					h.Set("Access-Control-Allow-Origin", "*")
				}
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if expose != "" {
					h.Set("Access-Control-Expose-Headers", expose)
				}
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func orDefault(v []string, def ...string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
