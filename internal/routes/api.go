package routes

import (
	"github.com/dukerupert/shrimptech/internal/handler"
	"github.com/dukerupert/shrimptech/internal/middleware"
	"github.com/dukerupert/shrimptech/internal/router"
)

// RegisterAPIRoutes registers the JSON API.
//
// Every /api route shares the general rate limit. Submissions additionally
// pass the submission limit, the request timeout, the body size limit and
// the validation middleware, in that order.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	if deps.SubmitTimeout <= 0 {
		deps.SubmitTimeout = middleware.DefaultTimeout
	}

	apiRouter := r.Group(middleware.RateLimit(deps.APILimit))

	apiRouter.Get("/api/health", deps.HealthHandler.Health)
	apiRouter.Get("/api/status", deps.StatusHandler.Status)

	submit := apiRouter.Group(
		middleware.RateLimit(deps.SubmitLimit),
		middleware.Timeout(deps.SubmitTimeout),
		middleware.MaxBodySize(middleware.SubmissionMaxBodySize),
	)
	submit.Post("/api/contact", deps.ContactHandler.Submit, middleware.ValidateContact(deps.Now))
	submit.Post("/api/newsletter", deps.ContactHandler.Subscribe, middleware.ValidateNewsletter(deps.Now))

	apiRouter.NotFound("/api", handler.NotFoundResponse)
}
