// Package submit delivers contact and newsletter forms from a client to the
// first backend that accepts them, falling back to the user's mail client
// when none does.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dukerupert/shrimptech/internal/domain"
	"github.com/dukerupert/shrimptech/internal/validation"
)

var (
	// ErrSubmissionInFlight is returned while another submission on the same
	// controller has not finished.
	ErrSubmissionInFlight = errors.New("submit: a submission is already in progress")

	// ErrDeliveryFailed is returned when every endpoint failed on every
	// attempt and a fallback was used instead.
	ErrDeliveryFailed = errors.New("submit: no endpoint accepted the submission")
)

// API paths appended to each endpoint.
const (
	ContactPath    = "/api/contact"
	NewsletterPath = "/api/newsletter"
)

// Defaults for Config.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxAttempts     = 2
	DefaultInitialInterval = time.Second
	DefaultMultiplier      = 1.5
	DefaultFallbackEmail   = "info@shrimptech.vn"
	DefaultHotline         = "0901 234 567"

	maxResponseBytes = 64 << 10
)

// Config configures a Controller.
type Config struct {
	Endpoints []Endpoint

	// Timeout bounds one POST to one endpoint.
	Timeout time.Duration

	// MaxAttempts is how many times the whole endpoint list is tried.
	MaxAttempts int

	// InitialInterval and Multiplier shape the wait between attempts.
	InitialInterval time.Duration
	Multiplier      float64

	FallbackEmail string
	Hotline       string

	HTTPClient *http.Client
	Notifier   Notifier
	Fallback   Fallback
	Logger     *slog.Logger
}

// Result describes a finished submission.
type Result struct {
	// Endpoint accepted the submission. Zero when a fallback was used.
	Endpoint Endpoint
	Status   int
	Message  string
	Data     json.RawMessage

	// Requests is the number of HTTP requests issued.
	Requests int

	Fallback FallbackKind
}

// EndpointError is one failed POST.
type EndpointError struct {
	Endpoint Endpoint
	Status   int    // 0 for network errors
	Message  string // server message, if any
	Err      error
}

func (e *EndpointError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Endpoint.URL, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint.URL, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Endpoint.URL, e.Status)
	}
}

func (e *EndpointError) Unwrap() error { return e.Err }

// Controller submits forms. At most one submission runs at a time.
type Controller struct {
	cfg      Config
	client   *http.Client
	logger   *slog.Logger
	inFlight atomic.Bool
}

// NewController applies defaults to cfg and returns a controller.
func NewController(cfg Config) *Controller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = DefaultMultiplier
	}
	if cfg.FallbackEmail == "" {
		cfg.FallbackEmail = DefaultFallbackEmail
	}
	if cfg.Hotline == "" {
		cfg.Hotline = DefaultHotline
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Notice) {})
	}
	if cfg.Fallback == nil {
		cfg.Fallback = noFallback{}
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{cfg: cfg, client: client, logger: logger}
}

// Endpoints returns the candidates in the order they are tried.
func (c *Controller) Endpoints() []Endpoint {
	return append([]Endpoint(nil), c.cfg.Endpoints...)
}

// SubmitContact validates sub and posts it to the first endpoint that
// accepts it. Validation failures return a domain invalid error and send
// nothing. If every endpoint fails, the fallback chain runs once and the
// error wraps ErrDeliveryFailed.
func (c *Controller) SubmitContact(ctx context.Context, sub domain.ContactSubmission) (*Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer c.inFlight.Store(false)

	validation.NormalizeContact(&sub)
	if res := validation.ValidateClientContact(sub); !res.Valid {
		c.notify(LevelError, res.FirstError())
		return nil, domain.Invalid("submit.contact", res.FirstError())
	}

	return c.deliver(ctx, ContactPath, sub, func() string {
		return ContactMailto(c.cfg.FallbackEmail, sub)
	})
}

// Subscribe is SubmitContact for the newsletter form.
func (c *Controller) Subscribe(ctx context.Context, email string) (*Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer c.inFlight.Store(false)

	sub := domain.NewsletterSubscription{Email: email}
	validation.NormalizeNewsletter(&sub)
	if res := validation.ValidateNewsletter(sub.Email); !res.Valid {
		c.notify(LevelError, res.FirstError())
		return nil, domain.Invalid("submit.newsletter", res.FirstError())
	}

	return c.deliver(ctx, NewsletterPath, sub, func() string {
		return NewsletterMailto(c.cfg.FallbackEmail, sub.Email)
	})
}

func (c *Controller) deliver(ctx context.Context, path string, payload any, mailtoLink func() string) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	c.notify(LevelLoading, "Sending...")

	requests := 0
	attempt := 0
	operation := func() (*Result, error) {
		attempt++
		res, err := c.tryEndpoints(ctx, path, body, &requests)
		if err != nil && ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return res, err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("submission attempt failed, retrying",
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	res, err := backoff.RetryNotifyWithData(operation, c.backOff(ctx), notify)
	if err == nil {
		res.Requests = requests
		c.notify(LevelSuccess, res.Message)
		return res, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.logger.Error("submission failed on every endpoint",
		"path", path,
		"attempts", attempt,
		"requests", requests,
		"error", err,
	)

	kind := c.runFallback(mailtoLink())
	return &Result{Requests: requests, Fallback: kind}, fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
}

func (c *Controller) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.Multiplier = c.cfg.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxAttempts-1)), ctx)
}

// tryEndpoints posts to each candidate in turn and returns the first
// success. Requests are strictly sequential.
func (c *Controller) tryEndpoints(ctx context.Context, path string, body []byte, requests *int) (*Result, error) {
	attempted := make(map[string]bool, len(c.cfg.Endpoints))
	var errs []error

	for {
		ep, ok := ChooseNextCandidate(c.cfg.Endpoints, attempted)
		if !ok {
			break
		}
		attempted[ep.URL] = true

		*requests++
		res, err := c.post(ctx, ep, path, body)
		if err == nil {
			return res, nil
		}

		c.logger.Debug("endpoint failed", "endpoint", ep.Name, "error", err)
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		return nil, backoff.Permanent(errors.New("no endpoints configured"))
	}
	return nil, errors.Join(errs...)
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Controller) post(ctx context.Context, ep Endpoint, path string, body []byte) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	target := strings.TrimSuffix(ep.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, &EndpointError{Endpoint: ep, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &EndpointError{Endpoint: ep, Err: err}
	}
	defer resp.Body.Close()

	var out apiResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &EndpointError{Endpoint: ep, Status: resp.StatusCode, Message: out.Message}
	}
	if decodeErr != nil {
		return nil, &EndpointError{Endpoint: ep, Status: resp.StatusCode, Err: fmt.Errorf("invalid response: %w", decodeErr)}
	}
	if !out.Success {
		return nil, &EndpointError{Endpoint: ep, Status: resp.StatusCode, Message: out.Message}
	}

	return &Result{
		Endpoint: ep,
		Status:   resp.StatusCode,
		Message:  out.Message,
		Data:     out.Data,
	}, nil
}

func (c *Controller) notify(level Level, text string) {
	c.cfg.Notifier.Notify(NewNotice(level, text))
}

// noFallback fails mailto and clipboard so the alert is always reached.
type noFallback struct{}

func (noFallback) OpenMailto(string) error      { return errors.New("mailto unavailable") }
func (noFallback) CopyToClipboard(string) error { return errors.New("clipboard unavailable") }
func (noFallback) Alert(string)                 {}
