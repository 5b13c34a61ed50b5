package domain

import (
	"context"
	"testing"
	"time"
)

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	ctx = NewContextWithRequestID(ctx, "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestClientIPContext(t *testing.T) {
	ctx := context.Background()
	if got := ClientIPFromContext(ctx); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}

	ctx = NewContextWithClientIP(ctx, "203.0.113.7")
	if got := ClientIPFromContext(ctx); got != "203.0.113.7" {
		t.Errorf("expected 203.0.113.7, got %q", got)
	}
}

func TestContactContext(t *testing.T) {
	t.Run("ContactFromContext returns nil when absent", func(t *testing.T) {
		if sub := ContactFromContext(context.Background()); sub != nil {
			t.Errorf("expected nil, got %+v", sub)
		}
	})

	t.Run("ContactFromContext returns submission when set", func(t *testing.T) {
		expected := &ContactSubmission{Name: "Nguyễn Văn A", Email: "a@example.com"}
		ctx := NewContextWithContact(context.Background(), expected)

		if sub := ContactFromContext(ctx); sub != expected {
			t.Errorf("expected %p, got %p", expected, sub)
		}
	})

	t.Run("MustContact panics when absent", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected panic")
			}
		}()
		MustContact(context.Background())
	})

	t.Run("MustNewsletter returns subscription when set", func(t *testing.T) {
		expected := &NewsletterSubscription{Email: "a@example.com"}
		ctx := NewContextWithNewsletter(context.Background(), expected)

		if sub := MustNewsletter(ctx); sub.Email != "a@example.com" {
			t.Errorf("expected a@example.com, got %q", sub.Email)
		}
	})
}

func TestContactSubmission_Stamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("ICT", 7*3600))

	sub := &ContactSubmission{}
	sub.Stamp(now)

	if sub.Source != DefaultSource {
		t.Errorf("Source = %q, want %q", sub.Source, DefaultSource)
	}
	if sub.Timestamp != "2024-05-01T02:30:00Z" {
		t.Errorf("Timestamp = %q", sub.Timestamp)
	}

	sub = &ContactSubmission{Source: "Landing page"}
	sub.Stamp(now)
	if sub.Source != "Landing page" {
		t.Errorf("Source overwritten: %q", sub.Source)
	}
}

func TestValidationResult_Merge(t *testing.T) {
	r := ValidationResult{Valid: true}
	r.Merge(ValidationResult{Valid: true})
	if !r.Valid || r.FirstError() != "" {
		t.Fatalf("expected valid result, got %+v", r)
	}

	r.Merge(ValidationResult{Errors: []string{"first"}})
	r.Merge(ValidationResult{Errors: []string{"second"}})
	if r.Valid {
		t.Error("expected invalid after merging errors")
	}
	if r.FirstError() != "first" || len(r.Errors) != 2 {
		t.Errorf("unexpected errors: %v", r.Errors)
	}
}
