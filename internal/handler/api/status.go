package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/shrimptech/internal/handler"
)

// StatusInfo describes the running build and its protections.
type StatusInfo struct {
	Version     string
	Environment string
	Security    SecurityInfo
}

// SecurityInfo lists the protections active on the API.
type SecurityInfo struct {
	CORSOrigins       []string `json:"cors_origins"`
	RateLimit         string   `json:"rate_limit"`
	SubmissionLimit   string   `json:"submission_limit"`
	SharedRateLimiter bool     `json:"shared_rate_limiter"`
	SecurityHeaders   bool     `json:"security_headers"`
	InputValidation   bool     `json:"input_validation"`
	InputSanitization bool     `json:"input_sanitization"`
}

// StatusHandler reports static build and configuration information.
type StatusHandler struct {
	info StatusInfo
	now  func() time.Time
}

// NewStatusHandler creates a status handler
func NewStatusHandler(info StatusInfo) *StatusHandler {
	return &StatusHandler{info: info, now: time.Now}
}

type statusResponse struct {
	Status      string       `json:"status"`
	Version     string       `json:"version"`
	Environment string       `json:"environment"`
	Timestamp   string       `json:"timestamp"`
	Security    SecurityInfo `json:"security"`
}

// Status handles GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	handler.JSON(w, http.StatusOK, statusResponse{
		Status:      "ok",
		Version:     h.info.Version,
		Environment: h.info.Environment,
		Timestamp:   h.now().UTC().Format(time.RFC3339),
		Security:    h.info.Security,
	})
}
