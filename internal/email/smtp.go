package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"

	"github.com/dukerupert/shrimptech/internal/telemetry"
)

// DispatcherConfig holds SMTP connection and pooling parameters.
type DispatcherConfig struct {
	Provider Provider

	MaxConnections     int           // concurrent SMTP sessions
	MaxMessagesPerConn int           // sends before a session is recycled
	RateLimit          float64       // messages per second across all sessions
	SendTimeout        time.Duration // upper bound for one Send, including dial
	DialTimeout        time.Duration
	IdleTimeout        time.Duration // idle sessions older than this are redialed
}

// DefaultDispatcherConfig returns the pool settings used in production.
func DefaultDispatcherConfig(p Provider) DispatcherConfig {
	return DispatcherConfig{
		Provider:           p,
		MaxConnections:     5,
		MaxMessagesPerConn: 100,
		RateLimit:          5,
		SendTimeout:        15 * time.Second,
		DialTimeout:        10 * time.Second,
		IdleTimeout:        30 * time.Second,
	}
}

// VerifyStatus is the cached result of the last connection check.
type VerifyStatus struct {
	OK        bool
	Err       error
	CheckedAt time.Time
}

// Dispatcher implements Sender over a pool of go-mail SMTP sessions.
// Features:
// - Automatic TLS/STARTTLS selection based on port
// - Bounded session pool with per-session message cap
// - Global send rate limit
// - Per-send timeout so a hung provider cannot hold a request
type Dispatcher struct {
	cfg     DispatcherConfig
	logger  *slog.Logger
	limiter *rate.Limiter
	pool    *pool
	dial    dialFunc

	mu     sync.RWMutex
	status VerifyStatus
}

// NewDispatcher creates a dispatcher that dials the configured provider lazily.
func NewDispatcher(cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{cfg: cfg, logger: logger}
	d.dial = d.dialSMTP
	d.init()
	return d
}

func newDispatcherWithDialer(cfg DispatcherConfig, logger *slog.Logger, dial dialFunc) *Dispatcher {
	d := &Dispatcher{cfg: cfg, logger: logger, dial: dial}
	d.init()
	return d
}

func (d *Dispatcher) init() {
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.cfg.MaxConnections <= 0 {
		d.cfg.MaxConnections = 1
	}
	if d.cfg.MaxMessagesPerConn <= 0 {
		d.cfg.MaxMessagesPerConn = 1
	}
	if d.cfg.SendTimeout <= 0 {
		d.cfg.SendTimeout = 15 * time.Second
	}

	limit := rate.Inf
	if d.cfg.RateLimit > 0 {
		limit = rate.Limit(d.cfg.RateLimit)
	}
	d.limiter = rate.NewLimiter(limit, 1)
	d.pool = newPool(d.dial, d.cfg.MaxConnections, d.cfg.MaxMessagesPerConn, d.cfg.IdleTimeout)
}

// Send delivers msg and returns its Message-ID. Errors are *DispatchError.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) (string, error) {
	m, err := buildMsg(msg)
	if err != nil {
		return "", &DispatchError{Kind: KindUnknown, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	ctx, finish := telemetry.StartSpan(ctx, "smtp.send", d.cfg.Provider.Name)
	defer finish()

	if err := d.limiter.Wait(ctx); err != nil {
		return "", &DispatchError{Kind: KindConnectionFailure, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	pc, err := d.pool.acquire(ctx)
	if err != nil {
		de := Classify(err)
		d.logger.Error("smtp: failed to open session",
			"host", d.cfg.Provider.Host,
			"kind", de.Kind,
			"error", err,
		)
		return "", de
	}

	done := make(chan error, 1)
	go func() {
		done <- pc.conn.Send(m)
	}()

	select {
	case err := <-done:
		pc.sent++
		d.pool.release(pc, err == nil)
		if err != nil {
			de := Classify(err)
			d.logger.Error("smtp: failed to send email",
				"to", msg.To.Email,
				"message_id", msg.MessageID(),
				"kind", de.Kind,
				"error", err,
			)
			return "", de
		}
	case <-ctx.Done():
		// The session is in an unknown state; drop it once the send returns.
		go func() {
			<-done
			d.pool.release(pc, false)
		}()
		d.logger.Error("smtp: send timed out",
			"to", msg.To.Email,
			"timeout", d.cfg.SendTimeout,
		)
		return "", &DispatchError{Kind: KindConnectionFailure, Err: fmt.Errorf("send timed out: %w", ctx.Err())}
	}

	d.logger.Info("smtp: email sent",
		"to", msg.To.Email,
		"message_id", msg.MessageID(),
		"provider", d.cfg.Provider.Name,
	)
	return msg.MessageID(), nil
}

// Verify dials the provider and authenticates without sending mail.
// The outcome is cached for Status.
func (d *Dispatcher) Verify(ctx context.Context) error {
	if d.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.DialTimeout)
		defer cancel()
	}

	var verr error
	conn, err := d.dial(ctx)
	if err != nil {
		verr = Classify(err)
	} else {
		_ = conn.Close()
	}

	d.mu.Lock()
	d.status = VerifyStatus{OK: verr == nil, Err: verr, CheckedAt: time.Now()}
	d.mu.Unlock()
	telemetry.SetSMTPHealthy(verr == nil)

	if verr != nil {
		d.logger.Error("smtp: connection verify failed",
			"provider", d.cfg.Provider.Name,
			"host", d.cfg.Provider.Host,
			"port", d.cfg.Provider.Port,
			"error", verr,
		)
		return verr
	}

	d.logger.Info("smtp: connection verified",
		"provider", d.cfg.Provider.Name,
		"host", d.cfg.Provider.Host,
		"port", d.cfg.Provider.Port,
	)
	return nil
}

// Status returns the cached result of the last Verify.
func (d *Dispatcher) Status() VerifyStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Monitor re-runs Verify every interval until ctx is cancelled.
func (d *Dispatcher) Monitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = d.Verify(ctx)
		}
	}
}

// Stats reports the pool state.
func (d *Dispatcher) Stats() PoolStats {
	return d.pool.stats()
}

// Provider returns the resolved provider.
func (d *Dispatcher) Provider() Provider {
	return d.cfg.Provider
}

// Shutdown closes idle sessions and rejects further sends.
func (d *Dispatcher) Shutdown() {
	d.pool.close()
	d.logger.Info("smtp: dispatcher shut down")
}

func (d *Dispatcher) dialSMTP(ctx context.Context) (smtpConn, error) {
	client, err := mail.NewClient(d.cfg.Provider.Host, buildClientOptions(d.cfg.Provider, d.cfg.DialTimeout)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialWithContext(ctx); err != nil {
		return nil, fmt.Errorf("connection to %s:%d failed: %w", d.cfg.Provider.Host, d.cfg.Provider.Port, err)
	}
	return client, nil
}

// buildClientOptions returns go-mail client options for the provider.
func buildClientOptions(p Provider, timeout time.Duration) []mail.Option {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := []mail.Option{
		mail.WithPort(p.Port),
		mail.WithTimeout(timeout),
	}

	switch {
	case p.Secure || p.Port == 465:
		// Implicit TLS (SMTPS)
		opts = append(opts, mail.WithSSL())
	case p.Port == 587:
		// STARTTLS (submission port)
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		// Port 25 and local relays like Mailhog on 1025
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if p.HasAuth() {
		opts = append(opts,
			mail.WithUsername(p.Username),
			mail.WithPassword(p.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	return opts
}

// buildMsg converts a Message into a go-mail message.
func buildMsg(msg *Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.FromFormat(msg.From.Name, msg.From.Email); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.AddToFormat(msg.To.Name, msg.To.Email); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if msg.ReplyTo.Email != "" {
		if err := m.ReplyToFormat(msg.ReplyTo.Name, msg.ReplyTo.Email); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}

	m.Subject(msg.Subject)
	m.SetDate()

	// Prefer HTML with text fallback
	if msg.Text != "" {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	} else {
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	}

	for key, value := range msg.Headers {
		m.SetGenHeader(mail.Header(key), value)
	}

	return m, nil
}
