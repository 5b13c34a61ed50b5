package domain

import "time"

// DefaultSource is recorded when a submission does not say where it came from.
const DefaultSource = "Website"

// ContactSubmission is one contact-form post. It lives for a single request
// and is never persisted.
type ContactSubmission struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Company   string `json:"company,omitempty"`
	Message   string `json:"message"`
	Source    string `json:"source,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Stamp fills the defaults that are set at validation time.
func (s *ContactSubmission) Stamp(now time.Time) {
	if s.Source == "" {
		s.Source = DefaultSource
	}
	s.Timestamp = now.UTC().Format(time.RFC3339)
}

// NewsletterSubscription carries a single email address.
type NewsletterSubscription struct {
	Email     string `json:"email"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Stamp sets the subscription timestamp.
func (s *NewsletterSubscription) Stamp(now time.Time) {
	s.Timestamp = now.UTC().Format(time.RFC3339)
}

// ValidationResult is the outcome of validating a field or a whole form.
// Errors keep the order in which rules were checked; the first one is the
// message shown to the user.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// FirstError returns the error surfaced to the user, or "" when valid.
func (r ValidationResult) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0]
}

// Merge appends other's errors to r and recomputes validity.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Valid = len(r.Errors) == 0
}
