package email

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"net/url"
	"strings"
)

// DispatchKind classifies a failed send.
type DispatchKind string

const (
	KindAuthFailure       DispatchKind = "AUTH_FAILURE"
	KindConnectionFailure DispatchKind = "CONNECTION_FAILURE"
	KindUnknown           DispatchKind = "UNKNOWN"
)

// DispatchError is returned by Sender implementations when a message could
// not be handed to the SMTP server.
type DispatchError struct {
	Kind DispatchKind
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// UserMessage returns the user-facing message for the error's kind.
func (e *DispatchError) UserMessage() string {
	return UserMessage(e.Kind)
}

// UserMessage maps a dispatch kind to the message shown to the submitter.
// The underlying error is never included.
func UserMessage(kind DispatchKind) string {
	switch kind {
	case KindAuthFailure:
		return "Our email service is temporarily misconfigured. Please contact us by phone or write to us directly."
	case KindConnectionFailure:
		return "We could not reach our email server. Please try again in a few minutes."
	default:
		return "We could not send your message. Please try again later."
	}
}

// KindOf returns the dispatch kind of err, or KindUnknown.
func KindOf(err error) DispatchKind {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// Classify wraps err in a DispatchError. Errors that already are
// DispatchErrors are returned unchanged.
func Classify(err error) *DispatchError {
	if err == nil {
		return nil
	}

	var de *DispatchError
	if errors.As(err, &de) {
		return de
	}

	return &DispatchError{Kind: classifyKind(err), Err: err}
}

func classifyKind(err error) DispatchKind {
	// SMTP reply codes for rejected or required authentication.
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535, 538:
			return KindAuthFailure
		case 421:
			return KindConnectionFailure
		}
	}

	if isTLSError(err) {
		return KindConnectionFailure
	}

	msg := strings.ToLower(err.Error())
	for _, s := range authMarkers {
		if strings.Contains(msg, s) {
			return KindAuthFailure
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindConnectionFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnectionFailure
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindConnectionFailure
	}

	for _, s := range []string{"connection refused", "no such host", "dial", "timeout", "connection reset", "broken pipe", "eof"} {
		if strings.Contains(msg, s) {
			return KindConnectionFailure
		}
	}

	return KindUnknown
}

// authMarkers are phrases SMTP clients and servers use for rejected logins.
// Bare "auth" is avoided; it also matches "certificate authority".
var authMarkers = []string{
	"authentication",
	"authenticate",
	"auth failed",
	"smtp auth",
	"username and password",
	"credentials",
	"535 ",
}

// isTLSError reports handshake and certificate failures, which are
// connection problems regardless of their wording.
func isTLSError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		invalidErr   x509.CertificateInvalidError
		hostErr      x509.HostnameError
		recordErr    tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &authorityErr),
		errors.As(err, &invalidErr),
		errors.As(err, &hostErr),
		errors.As(err, &recordErr):
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "x509:") || strings.Contains(msg, "tls:")
}

// ErrDispatcherClosed is returned by Send after Shutdown.
var ErrDispatcherClosed = errors.New("email: dispatcher is shut down")
