package routes

import (
	"github.com/dukerupert/shrimptech/internal/router"
)

// RegisterSiteRoutes registers the metrics endpoint and the static site.
func RegisterSiteRoutes(r *router.Router, deps SiteDeps) {
	// Metrics endpoint (no auth required, protect via firewall in production)
	if deps.MetricsHandler != nil {
		r.Get("/metrics", deps.MetricsHandler.ServeHTTP)
	}

	// The marketing site is plain files; index.html is served for "/"
	if deps.StaticDir != "" {
		r.Static("/", deps.StaticDir)
	}
}
