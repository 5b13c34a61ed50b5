package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad"))
	}))

	for _, path := range []string{"/api/contact", "/api/contact", "/wp-login.php"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `test_http_requests_total{method="POST",path="/api/contact",status="400"} 2`), body)
	assert.True(t, strings.Contains(body, `test_http_requests_total{method="POST",path="/site/*",status="400"} 1`), body)
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/":                "/",
		"/api/contact":     "/api/contact",
		"/api/health":      "/api/health",
		"/api/unknown":     "/api/other",
		"/static/site.css": "/static/*",
		"/index.html":      "/site/*",
	}

	for path, want := range tests {
		assert.Equal(t, want, normalizePath(path), path)
	}
}
