package submit

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dukerupert/shrimptech/internal/domain"
)

// Fallback is how the user is reached when no endpoint accepted the form.
type Fallback interface {
	// OpenMailto hands a mailto: link to the user's mail client.
	OpenMailto(link string) error

	// CopyToClipboard places text on the clipboard.
	CopyToClipboard(text string) error

	// Alert shows a blocking message.
	Alert(message string)
}

// FallbackKind records which fallback reached the user.
type FallbackKind string

const (
	FallbackNone      FallbackKind = ""
	FallbackMailto    FallbackKind = "mailto"
	FallbackClipboard FallbackKind = "clipboard"
	FallbackAlert     FallbackKind = "alert"
)

// ContactMailto builds a mailto: link pre-filled with the contact form.
func ContactMailto(to string, sub domain.ContactSubmission) string {
	var body strings.Builder
	fmt.Fprintf(&body, "Name: %s\n", sub.Name)
	fmt.Fprintf(&body, "Email: %s\n", sub.Email)
	fmt.Fprintf(&body, "Phone: %s\n", sub.Phone)
	if sub.Company != "" {
		fmt.Fprintf(&body, "Company: %s\n", sub.Company)
	}
	fmt.Fprintf(&body, "\nMessage:\n%s\n", sub.Message)

	return mailto(to, "Contact request from "+sub.Name, body.String())
}

// NewsletterMailto builds a mailto: link asking to join the newsletter.
func NewsletterMailto(to, email string) string {
	return mailto(to, "Newsletter subscription",
		fmt.Sprintf("Please add %s to the SHRIMPTECH newsletter.\n", email))
}

func mailto(to, subject, body string) string {
	return "mailto:" + to + "?subject=" + mailtoEscape(subject) + "&body=" + mailtoEscape(body)
}

// mailtoEscape percent-encodes s with spaces as %20; mail clients show a
// literal "+" for query-style spaces.
func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// runFallback tries mailto, then the clipboard, then an alert. It returns the
// step that reached the user.
func (c *Controller) runFallback(link string) FallbackKind {
	addr := c.cfg.FallbackEmail

	err := c.cfg.Fallback.OpenMailto(link)
	if err == nil {
		c.notify(LevelInfo, fmt.Sprintf(
			"We could not reach our server, so your email client has been opened with your message. Please send it to %s.", addr))
		return FallbackMailto
	}
	c.logger.Warn("mailto fallback failed", "error", err)

	err = c.cfg.Fallback.CopyToClipboard(addr)
	if err == nil {
		c.notify(LevelInfo, fmt.Sprintf(
			"We could not reach our server. Our email address %s has been copied to your clipboard.", addr))
		return FallbackClipboard
	}
	c.logger.Warn("clipboard fallback failed", "error", err)

	c.cfg.Fallback.Alert(fmt.Sprintf(
		"We could not reach our server. Please email %s or call %s.", addr, c.cfg.Hotline))
	return FallbackAlert
}
