package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// SecurityHeadersConfig configures security headers
type SecurityHeadersConfig struct {
	// ContentSecurityPolicy sets the Content-Security-Policy header
	// Leave empty to skip the header
	ContentSecurityPolicy string

	// FrameOptions sets X-Frame-Options (DENY, SAMEORIGIN, or ALLOW-FROM uri)
	// Default: DENY
	FrameOptions string

	// ContentTypeNosniff sets X-Content-Type-Options: nosniff
	// Default: true
	ContentTypeNosniff bool

	// ReferrerPolicy sets Referrer-Policy header
	// Default: "strict-origin-when-cross-origin"
	ReferrerPolicy string

	// PermissionsPolicy sets Permissions-Policy header
	PermissionsPolicy string

	// HSTSMaxAge sets Strict-Transport-Security max-age in seconds
	// Set to 0 to disable HSTS
	// Default: 31536000 (1 year)
	HSTSMaxAge int

	// HSTSIncludeSubdomains includes subdomains in HSTS
	// Default: true
	HSTSIncludeSubdomains bool

	// HSTSPreload adds the preload directive
	HSTSPreload bool
}

// Hosts the marketing site loads scripts, styles and fonts from.
var (
	scriptHosts = []string{"https://cdnjs.cloudflare.com", "https://cdn.jsdelivr.net"}
	styleHosts  = []string{"https://fonts.googleapis.com", "https://cdnjs.cloudflare.com"}
	fontHosts   = []string{"https://fonts.gstatic.com", "https://cdnjs.cloudflare.com"}
)

// ContentSecurityPolicy builds the site policy. connectOrigins are the
// API origins the browser may post submissions to.
func ContentSecurityPolicy(connectOrigins []string) string {
	directives := []string{
		"default-src 'self'",
		"script-src " + strings.Join(append([]string{"'self'"}, scriptHosts...), " "),
		"style-src " + strings.Join(append([]string{"'self'", "'unsafe-inline'"}, styleHosts...), " "),
		"font-src " + strings.Join(append([]string{"'self'"}, fontHosts...), " "),
		"img-src 'self' data: https:",
		"connect-src " + strings.Join(append([]string{"'self'"}, connectOrigins...), " "),
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
		"object-src 'none'",
	}
	return strings.Join(directives, "; ")
}

// DefaultSecurityHeadersConfig returns the production header set
func DefaultSecurityHeadersConfig(connectOrigins []string) SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy: ContentSecurityPolicy(connectOrigins),
		FrameOptions:          "DENY",
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "camera=(), microphone=(), geolocation=(), payment=(), usb=()",
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		HSTSPreload:           true,
	}
}

// SecurityHeaders adds security headers to all responses
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	hsts := ""
	if config.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		if config.HSTSPreload {
			hsts += "; preload"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			if config.FrameOptions != "" {
				h.Set("X-Frame-Options", config.FrameOptions)
			}
			if config.ContentTypeNosniff {
				h.Set("X-Content-Type-Options", "nosniff")
			}
			if config.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", config.ReferrerPolicy)
			}
			if config.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", config.ContentSecurityPolicy)
			}
			if config.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", config.PermissionsPolicy)
			}
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}

			next.ServeHTTP(w, r)
		})
	}
}
