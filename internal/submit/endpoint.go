package submit

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CanonicalOrigin is the deployed site.
const CanonicalOrigin = "https://shrimptech.vn"

// Endpoint is one backend the form can be posted to. URL is the origin;
// the API path is appended per request.
type Endpoint struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// DefaultEndpoints returns the candidates in priority order. Development
// tries the local servers first. Production tries the canonical origin and
// then the page's own origin.
func DefaultEndpoints(env, origin string) []Endpoint {
	var endpoints []Endpoint

	if env == "dev" || env == "development" {
		endpoints = append(endpoints,
			Endpoint{Name: "localhost", URL: "http://localhost:3000"},
			Endpoint{Name: "loopback", URL: "http://127.0.0.1:3000"},
		)
	} else {
		endpoints = append(endpoints, Endpoint{Name: "production", URL: CanonicalOrigin})
	}

	if same, ok := sameOrigin(origin); ok {
		endpoints = append(endpoints, Endpoint{Name: "same-origin", URL: same})
	}

	return dedupe(endpoints)
}

// sameOrigin resolves the relative API root against the page origin.
func sameOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", false
	}
	root := base.ResolveReference(&url.URL{Path: "/"})
	return strings.TrimSuffix(root.String(), "/"), true
}

// ChooseNextCandidate returns the first endpoint whose URL has not been
// attempted. It reports false once every endpoint was tried.
func ChooseNextCandidate(endpoints []Endpoint, attempted map[string]bool) (Endpoint, bool) {
	for _, ep := range endpoints {
		if !attempted[ep.URL] {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// EndpointsFile is the YAML form of a client configuration:
//
//	fallback_email: info@shrimptech.vn
//	hotline: 0901 234 567
//	endpoints:
//	  - name: production
//	    url: https://shrimptech.vn
type EndpointsFile struct {
	FallbackEmail string     `yaml:"fallback_email"`
	Hotline       string     `yaml:"hotline"`
	Endpoints     []Endpoint `yaml:"endpoints"`
}

// LoadEndpointsFile reads and validates an endpoints file.
func LoadEndpointsFile(path string) (*EndpointsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoints file: %w", err)
	}
	return ParseEndpointsFile(data)
}

// ParseEndpointsFile decodes YAML endpoints. Every URL must be an absolute
// http or https origin; duplicates keep their first position.
func ParseEndpointsFile(data []byte) (*EndpointsFile, error) {
	var f EndpointsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse endpoints file: %w", err)
	}

	if len(f.Endpoints) == 0 {
		return nil, fmt.Errorf("endpoints file lists no endpoints")
	}

	for i := range f.Endpoints {
		ep := &f.Endpoints[i]
		u, err := url.Parse(ep.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("endpoint %d: %q is not an http(s) URL", i+1, ep.URL)
		}
		ep.URL = strings.TrimSuffix(ep.URL, "/")
		if ep.Name == "" {
			ep.Name = u.Host
		}
	}

	f.Endpoints = dedupe(f.Endpoints)
	return &f, nil
}

func dedupe(endpoints []Endpoint) []Endpoint {
	seen := make(map[string]bool, len(endpoints))
	out := endpoints[:0]
	for _, ep := range endpoints {
		if seen[ep.URL] {
			continue
		}
		seen[ep.URL] = true
		out = append(out, ep)
	}
	return out
}
