package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSentry_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name string
		cfg  SentryConfig
	}{
		{name: "disabled", cfg: SentryConfig{Enabled: false, DSN: "https://key@example.invalid/1"}},
		{name: "enabled without DSN", cfg: SentryConfig{Enabled: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup, err := InitSentry(tt.cfg, logger)
			require.NoError(t, err)
			require.NotNil(t, cleanup)
			cleanup()

			assert.False(t, IsEnabled())
		})
	}
}

func TestHelpers_NoopWhenDisabled(t *testing.T) {
	sentryInstance = nil

	// None of these may panic without an initialized client.
	CaptureError(errors.New("boom"))
	CaptureErrorFromContext(context.Background(), errors.New("boom"), map[string]interface{}{"k": "v"})
	AddBreadcrumb(context.Background(), "email", "sent", nil)

	ctx, finish := StartSpan(context.Background(), "smtp.send", "admin")
	finish()
	assert.Equal(t, context.Background(), ctx)

	called := false
	h := SentryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestRecordHelpers_NilSafe(t *testing.T) {
	Business = nil

	RecordSubmission(FormContact, ResultSuccess)
	RecordRejection(FormContact, "invalid")
	RecordRateLimitHit("submit")
	RecordEmail(TemplateAdmin, 0.2, "")
	SetSMTPHealthy(true)
}
