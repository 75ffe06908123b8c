// Package security applies hardening headers to HTTP responses.
package security

import "net/http"

type HeadersConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	PermissionsPolicy   string
}

// DefaultHeadersConfig returns defaults for the API and websocket surface.
// connect-src allows websocket schemes for the realtime endpoint.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: "default-src 'self'; " +
			"connect-src 'self' ws: wss:; " +
			"object-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'self'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "strict-origin-when-cross-origin",
		PermissionsPolicy:   "geolocation=(), microphone=(), camera=(), payment=()",
	}
}

// Wrap sets the configured headers on every response.
func Wrap(config HeadersConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.CSP != "" {
			w.Header().Set("Content-Security-Policy", config.CSP)
		}
		if config.XFrameOptions != "" {
			w.Header().Set("X-Frame-Options", config.XFrameOptions)
		}
		if config.XContentTypeOptions != "" {
			w.Header().Set("X-Content-Type-Options", config.XContentTypeOptions)
		}
		if config.ReferrerPolicy != "" {
			w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
		}
		if config.PermissionsPolicy != "" {
			w.Header().Set("Permissions-Policy", config.PermissionsPolicy)
		}
		next.ServeHTTP(w, r)
	})
}
