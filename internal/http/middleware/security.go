package middleware

import (
	"fmt"
	"net/http"

	"github.com/ecoroute/crm-api/internal/config"
)

// SecurityHeaders sets the configured response hardening headers
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	hsts := ""
	if cfg.EnableHSTS {
		hsts = fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
	}

	optional := map[string]string{
		"X-Frame-Options":           cfg.FrameOptions,
		"Content-Security-Policy":   cfg.ContentSecurityPolicy,
		"Referrer-Policy":           cfg.ReferrerPolicy,
		"Permissions-Policy":        cfg.PermissionsPolicy,
		"Strict-Transport-Security": hsts,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if cfg.ContentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			for name, value := range optional {
				if value != "" {
					h.Set(name, value)
				}
			}
			// Download links are short-lived and per-user
			h.Set("Cache-Control", "no-store")

			h.Del("X-Powered-By")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}
