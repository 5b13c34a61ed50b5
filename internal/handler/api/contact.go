package api

import (
	"html"
	"log/slog"
	"net/http"

	"github.com/dukerupert/shrimptech/internal/domain"
	"github.com/dukerupert/shrimptech/internal/handler"
	"github.com/dukerupert/shrimptech/internal/service"
)

// User-facing success messages.
const (
	ContactSuccessMessage    = "Thank you for contacting SHRIMPTECH. We will get back to you within 24 hours."
	NewsletterSuccessMessage = "Thank you for subscribing to the SHRIMPTECH newsletter."
)

// ContactHandler serves the submission endpoints. It expects the
// validation middleware to have stored a sanitized submission in the context.
type ContactHandler struct {
	service service.ContactService
	logger  *slog.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(svc service.ContactService, logger *slog.Logger) *ContactHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactHandler{
		service: svc,
		logger:  logger,
	}
}

// contactData is echoed back on success.
type contactData struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
}

// Submit handles POST /api/contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sub := domain.MustContact(r.Context())
	clientIP := domain.ClientIPFromContext(r.Context())

	if _, err := h.service.SubmitContact(r.Context(), *sub, clientIP); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	// The address was validated before sanitizing; echo it as the client sent it.
	handler.Success(w, ContactSuccessMessage, contactData{
		Name:      sub.Name,
		Email:     html.UnescapeString(sub.Email),
		Timestamp: sub.Timestamp,
	})
}

// Subscribe handles POST /api/newsletter
func (h *ContactHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	sub := domain.MustNewsletter(r.Context())
	clientIP := domain.ClientIPFromContext(r.Context())

	if err := h.service.SubscribeNewsletter(r.Context(), *sub, clientIP); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.Success(w, NewsletterSuccessMessage, nil)
}
