package submit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		origin string
		want   []Endpoint
	}{
		{
			name:   "development tries local servers first",
			env:    "dev",
			origin: "http://localhost:5500",
			want: []Endpoint{
				{Name: "localhost", URL: "http://localhost:3000"},
				{Name: "loopback", URL: "http://127.0.0.1:3000"},
				{Name: "same-origin", URL: "http://localhost:5500"},
			},
		},
		{
			name:   "production mirror",
			env:    "prod",
			origin: "https://shrimptech.pages.dev/contact.html",
			want: []Endpoint{
				{Name: "production", URL: CanonicalOrigin},
				{Name: "same-origin", URL: "https://shrimptech.pages.dev"},
			},
		},
		{
			name:   "production on the canonical origin",
			env:    "prod",
			origin: "https://shrimptech.vn",
			want:   []Endpoint{{Name: "production", URL: CanonicalOrigin}},
		},
		{
			name: "no origin",
			env:  "prod",
			want: []Endpoint{{Name: "production", URL: CanonicalOrigin}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultEndpoints(tt.env, tt.origin))
		})
	}
}

func TestChooseNextCandidate(t *testing.T) {
	endpoints := []Endpoint{
		{Name: "a", URL: "https://a.example"},
		{Name: "b", URL: "https://b.example"},
	}
	attempted := map[string]bool{}

	ep, ok := ChooseNextCandidate(endpoints, attempted)
	require.True(t, ok)
	assert.Equal(t, "a", ep.Name)

	attempted[ep.URL] = true
	ep, ok = ChooseNextCandidate(endpoints, attempted)
	require.True(t, ok)
	assert.Equal(t, "b", ep.Name)

	attempted[ep.URL] = true
	_, ok = ChooseNextCandidate(endpoints, attempted)
	assert.False(t, ok)

	_, ok = ChooseNextCandidate(nil, nil)
	assert.False(t, ok)
}

func TestParseEndpointsFile(t *testing.T) {
	data := []byte(`
fallback_email: hello@shrimptech.vn
hotline: 0909 000 111
endpoints:
  - name: production
    url: https://shrimptech.vn/
  - url: https://api.shrimptech.vn
  - name: duplicate
    url: https://shrimptech.vn
`)

	f, err := ParseEndpointsFile(data)
	require.NoError(t, err)

	assert.Equal(t, "hello@shrimptech.vn", f.FallbackEmail)
	assert.Equal(t, "0909 000 111", f.Hotline)
	assert.Equal(t, []Endpoint{
		{Name: "production", URL: "https://shrimptech.vn"},
		{Name: "api.shrimptech.vn", URL: "https://api.shrimptech.vn"},
	}, f.Endpoints)
}

func TestParseEndpointsFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "endpoints: [unterminated"},
		{"empty", "fallback_email: a@b.vn\n"},
		{"relative url", "endpoints:\n  - url: /api\n"},
		{"bad scheme", "endpoints:\n  - url: ftp://shrimptech.vn\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEndpointsFile([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadEndpointsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoints:\n  - url: http://localhost:3000\n"), 0o644))

	f, err := LoadEndpointsFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Endpoint{{Name: "localhost:3000", URL: "http://localhost:3000"}}, f.Endpoints)

	_, err = LoadEndpointsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
