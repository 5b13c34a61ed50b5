package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for the submission pipeline.
type BusinessMetrics struct {
	// Submissions
	Submissions          *prometheus.CounterVec
	ValidationRejections *prometheus.CounterVec
	RateLimitHits        *prometheus.CounterVec

	// Email delivery
	EmailsSent        *prometheus.CounterVec
	EmailFailures     *prometheus.CounterVec
	EmailSendDuration *prometheus.HistogramVec
	SMTPHealthy       prometheus.Gauge
}

// Label values shared by callers.
const (
	FormContact    = "contact"
	FormNewsletter = "newsletter"

	ResultSuccess = "success"
	ResultPartial = "partial"
	ResultFailed  = "failed"

	TemplateAdmin        = "admin_notification"
	TemplateConfirmation = "customer_confirmation"
	TemplateNewsletter   = "newsletter_notification"
)

// NewBusinessMetrics creates the metrics on the default registry.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "shrimptech"
	}

	subsystem := "business"

	m := &BusinessMetrics{
		Submissions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "submissions_total",
				Help:      "Accepted form submissions by outcome",
			},
			[]string{"form", "result"}, // result: success, partial, failed
		),
		ValidationRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "validation_rejections_total",
				Help:      "Submissions rejected before dispatch",
			},
			[]string{"form", "reason"}, // reason: malformed, invalid, unsafe
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),

		EmailsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "emails_total",
				Help:      "Email send attempts by template and result",
			},
			[]string{"template", "result"},
		),
		EmailFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "email_failures_total",
				Help:      "Failed email sends by classified kind",
			},
			[]string{"template", "kind"}, // kind: AUTH_FAILURE, CONNECTION_FAILURE, UNKNOWN
		),
		EmailSendDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "email_send_duration_seconds",
				Help:      "SMTP send duration including pool wait",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"template"},
		),
		SMTPHealthy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "smtp_healthy",
				Help:      "1 when the last SMTP verification succeeded",
			},
		),
	}

	return m
}

// Global instance for easy access from handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}

// RecordSubmission counts a submission outcome. Safe before InitBusinessMetrics.
func RecordSubmission(form, result string) {
	if Business == nil {
		return
	}
	Business.Submissions.WithLabelValues(form, result).Inc()
}

// RecordRejection counts a submission rejected before dispatch.
func RecordRejection(form, reason string) {
	if Business == nil {
		return
	}
	Business.ValidationRejections.WithLabelValues(form, reason).Inc()
}

// RecordRateLimitHit counts a rejected request for limiter.
func RecordRateLimitHit(limiter string) {
	if Business == nil {
		return
	}
	Business.RateLimitHits.WithLabelValues(limiter).Inc()
}

// RecordEmail counts one send attempt. kind is empty on success.
func RecordEmail(template string, seconds float64, kind string) {
	if Business == nil {
		return
	}
	Business.EmailSendDuration.WithLabelValues(template).Observe(seconds)
	if kind == "" {
		Business.EmailsSent.WithLabelValues(template, ResultSuccess).Inc()
		return
	}
	Business.EmailsSent.WithLabelValues(template, ResultFailed).Inc()
	Business.EmailFailures.WithLabelValues(template, kind).Inc()
}

// SetSMTPHealthy publishes the cached SMTP verification state.
func SetSMTPHealthy(ok bool) {
	if Business == nil {
		return
	}
	if ok {
		Business.SMTPHealthy.Set(1)
	} else {
		Business.SMTPHealthy.Set(0)
	}
}
