// Package domain provides the core request types, application errors and
// context helpers for the SHRIMPTECH contact backend.
//
// Context helpers centralize request-scoped data access so middleware and
// handlers agree on where validated input and tracing data live.
package domain

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// requestIDContextKey stores the request ID for tracing.
	requestIDContextKey contextKey = iota

	// clientIPContextKey stores the resolved client IP.
	clientIPContextKey

	// contactContextKey stores a validated, sanitized contact submission.
	contactContextKey

	// newsletterContextKey stores a validated newsletter subscription.
	newsletterContextKey
)

// --- Request ID Context Helpers ---

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if no request ID is present.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// --- Client IP Context Helpers ---

// NewContextWithClientIP returns a new context with the client IP attached.
func NewContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey, ip)
}

// LookupClientIP returns the client IP recorded on ctx, if any.
func LookupClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey).(string)
	return ip, ok && ip != ""
}

// ClientIPFromContext retrieves the client IP from context.
// Returns "unknown" if none was recorded.
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPContextKey).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// --- Submission Context Helpers ---

// NewContextWithContact returns a new context carrying the sanitized submission.
func NewContextWithContact(ctx context.Context, sub *ContactSubmission) context.Context {
	return context.WithValue(ctx, contactContextKey, sub)
}

// ContactFromContext retrieves the sanitized submission.
// Returns nil if the validation middleware did not run.
func ContactFromContext(ctx context.Context) *ContactSubmission {
	sub, _ := ctx.Value(contactContextKey).(*ContactSubmission)
	return sub
}

// MustContact retrieves the submission from context, panicking if not present.
// The panic will be caught by the recovery middleware.
func MustContact(ctx context.Context) *ContactSubmission {
	sub := ContactFromContext(ctx)
	if sub == nil {
		panic("contact submission required in context but not found")
	}
	return sub
}

// NewContextWithNewsletter returns a new context carrying the subscription.
func NewContextWithNewsletter(ctx context.Context, sub *NewsletterSubscription) context.Context {
	return context.WithValue(ctx, newsletterContextKey, sub)
}

// NewsletterFromContext retrieves the subscription.
// Returns nil if the validation middleware did not run.
func NewsletterFromContext(ctx context.Context) *NewsletterSubscription {
	sub, _ := ctx.Value(newsletterContextKey).(*NewsletterSubscription)
	return sub
}

// MustNewsletter retrieves the subscription from context, panicking if not present.
func MustNewsletter(ctx context.Context) *NewsletterSubscription {
	sub := NewsletterFromContext(ctx)
	if sub == nil {
		panic("newsletter subscription required in context but not found")
	}
	return sub
}
