package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/dukerupert/shrimptech/internal/domain"
	"github.com/dukerupert/shrimptech/internal/telemetry"
	"github.com/dukerupert/shrimptech/internal/validation"
)

// namedField pairs a JSON field name with a pointer into the decoded struct.
type namedField struct {
	name  string
	value *string
}

func contactFields(sub *domain.ContactSubmission) []namedField {
	return []namedField{
		{"name", &sub.Name},
		{"email", &sub.Email},
		{"phone", &sub.Phone},
		{"company", &sub.Company},
		{"message", &sub.Message},
		{"source", &sub.Source},
	}
}

// ValidateContact decodes a contact submission from the JSON body, validates
// it, rejects unsafe content, sanitizes every string field and stores the
// result in the request context for the next handler (see domain.MustContact).
func ValidateContact(now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sub domain.ContactSubmission
			if !decodeBody(w, r, telemetry.FormContact, &sub) {
				return
			}

			validation.NormalizeContact(&sub)

			if res := validation.ValidateContactForm(sub); !res.Valid {
				reject(w, r, telemetry.FormContact, "invalid", res.FirstError())
				return
			}

			fields := contactFields(&sub)
			if !checkAndSanitize(w, r, telemetry.FormContact, fields) {
				return
			}

			sub.Stamp(now())

			ctx := domain.NewContextWithContact(r.Context(), &sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ValidateNewsletter is ValidateContact for newsletter subscriptions.
func ValidateNewsletter(now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sub domain.NewsletterSubscription
			if !decodeBody(w, r, telemetry.FormNewsletter, &sub) {
				return
			}

			validation.NormalizeNewsletter(&sub)

			if res := validation.ValidateNewsletter(sub.Email); !res.Valid {
				reject(w, r, telemetry.FormNewsletter, "invalid", res.FirstError())
				return
			}

			fields := []namedField{{"email", &sub.Email}}
			if !checkAndSanitize(w, r, telemetry.FormNewsletter, fields) {
				return
			}

			sub.Stamp(now())

			ctx := domain.NewContextWithNewsletter(r.Context(), &sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// decodeBody reads one JSON object into dst. It writes the error response and
// returns false when the body is missing, malformed or too large.
func decodeBody(w http.ResponseWriter, r *http.Request, form string, dst any) bool {
	if !isJSONContentType(r.Header.Get("Content-Type")) {
		telemetry.RecordRejection(form, "media_type")
		respondUnsupportedMediaType(w, r, "Content-Type must be application/json")
		return false
	}

	if r.Body == nil {
		reject(w, r, form, "malformed", "Request body is required")
		return false
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			telemetry.RecordRejection(form, "too_large")
			respondTooLarge(w, r, "Request body too large")
		case errors.Is(err, io.EOF):
			reject(w, r, form, "malformed", "Request body is required")
		default:
			reject(w, r, form, "malformed", "Request body must be a valid JSON object")
		}
		return false
	}

	return true
}

// checkAndSanitize rejects the request if any field carries script or SQL
// injection patterns, naming only the field. Otherwise every field is
// replaced by its sanitized form.
func checkAndSanitize(w http.ResponseWriter, r *http.Request, form string, fields []namedField) bool {
	for _, f := range fields {
		if !validation.IsSafe(*f.value) {
			GetLogger(r.Context()).Warn("unsafe content rejected",
				"form", form,
				"field", f.name,
				"client_ip", domain.ClientIPFromContext(r.Context()),
			)
			reject(w, r, form, "unsafe", fmt.Sprintf("Invalid content in field: %s", f.name))
			return false
		}
	}

	for _, f := range fields {
		*f.value = validation.SanitizeInput(*f.value)
	}
	return true
}

// isJSONContentType accepts application/json with optional parameters.
func isJSONContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	return err == nil && mediaType == "application/json"
}

func reject(w http.ResponseWriter, r *http.Request, form, reason, message string) {
	telemetry.RecordRejection(form, reason)
	respondBadRequest(w, r, message)
}
