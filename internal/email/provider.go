package email

import (
	"strconv"
	"strings"
)

// Provider describes the SMTP server and credentials the dispatcher uses.
type Provider struct {
	Name     string
	Host     string
	Port     int
	Username string // optional - local relays accept unauthenticated mail
	Password string
	Secure   bool // implicit TLS regardless of port
}

// HasAuth reports whether credentials are configured.
func (p Provider) HasAuth() bool {
	return p.Username != "" && p.Password != ""
}

// Default SMTP host used when no provider credentials are configured.
const (
	DefaultHost = "localhost"
	DefaultPort = 1025
)

type providerSpec struct {
	name    string
	host    string
	port    int
	userKey string
	passKey string
}

// Providers in priority order. The first one with both credentials set wins.
var providerSpecs = []providerSpec{
	{name: "brevo", host: "smtp-relay.brevo.com", port: 587, userKey: "BREVO_USER", passKey: "BREVO_PASS"},
	{name: "mailjet", host: "in-v3.mailjet.com", port: 587, userKey: "MAILJET_API_KEY", passKey: "MAILJET_SECRET_KEY"},
	{name: "mailgun", host: "smtp.mailgun.org", port: 587, userKey: "MAILGUN_SMTP_USER", passKey: "MAILGUN_SMTP_PASS"},
	{name: "gmail", host: "smtp.gmail.com", port: 587, userKey: "GMAIL_USER", passKey: "GMAIL_APP_PASSWORD"},
}

// ResolveProvider picks the SMTP provider from environment values. lookup
// returns "" for unset keys. SMTP_PORT and SMTP_SECURE override the port
// and TLS mode of whichever provider is chosen.
func ResolveProvider(lookup func(string) string) Provider {
	p := resolveCredentials(lookup)

	if port, err := strconv.Atoi(lookup("SMTP_PORT")); err == nil && port > 0 {
		p.Port = port
	}
	if secure, err := strconv.ParseBool(lookup("SMTP_SECURE")); err == nil {
		p.Secure = secure
	}
	return p
}

func resolveCredentials(lookup func(string) string) Provider {
	for _, known := range providerSpecs {
		user, pass := lookup(known.userKey), lookup(known.passKey)
		if user != "" && pass != "" {
			return Provider{
				Name:     known.name,
				Host:     known.host,
				Port:     known.port,
				Username: user,
				Password: pass,
			}
		}
	}

	host := strings.TrimSpace(lookup("SMTP_HOST"))
	user, pass := lookup("SMTP_USER"), lookup("SMTP_PASS")
	if host != "" && user != "" && pass != "" {
		return Provider{Name: "smtp", Host: host, Port: 587, Username: user, Password: pass}
	}

	if host == "" {
		host = DefaultHost
	}
	return Provider{Name: "default", Host: host, Port: DefaultPort}
}
