package email

import (
	"context"
	"fmt"
)

// Header names set on every outgoing message.
const (
	HeaderMessageID  = "Message-ID"
	HeaderXMailer    = "X-Mailer"
	HeaderXPriority  = "X-Priority"
	HeaderImportance = "Importance"
)

// Address is a display name and email address pair.
type Address struct {
	Name  string
	Email string
}

// String formats the address as "Name <email>".
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Message represents an email to be sent. It is built per request and never stored.
type Message struct {
	From    Address
	To      Address
	ReplyTo Address // optional

	Subject string
	HTML    string            // full HTML document
	Text    string            // plain text alternative
	Headers map[string]string // Message-ID, X-Mailer, optional X-Priority and Importance
}

// MessageID returns the Message-ID header value.
func (m *Message) MessageID() string {
	return m.Headers[HeaderMessageID]
}

// Sender defines the interface for sending emails.
type Sender interface {
	// Send delivers one message and returns its message ID.
	// Failures are returned as *DispatchError.
	Send(ctx context.Context, msg *Message) (string, error)
}
