package routes

import (
	"net/http"
	"time"

	"github.com/dukerupert/shrimptech/internal/handler/api"
	"github.com/dukerupert/shrimptech/internal/middleware"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	ContactHandler *api.ContactHandler
	HealthHandler  *api.HealthHandler
	StatusHandler  *api.StatusHandler

	// APILimit applies to every /api route; SubmitLimit additionally to
	// the contact and newsletter endpoints.
	APILimit    middleware.RateLimitConfig
	SubmitLimit middleware.RateLimitConfig

	// SubmitTimeout bounds one submission including both SMTP sends.
	// Defaults to middleware.DefaultTimeout.
	SubmitTimeout time.Duration

	// Now stamps validated submissions. Defaults to time.Now.
	Now func() time.Time
}

// SiteDeps contains dependencies for the non-API routes
type SiteDeps struct {
	// StaticDir is served at the site root when set.
	StaticDir string

	// MetricsHandler serves the Prometheus exposition at /metrics.
	MetricsHandler http.Handler
}
