package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/shrimptech/internal/domain"
	"github.com/dukerupert/shrimptech/internal/email"
	"github.com/dukerupert/shrimptech/internal/telemetry"
)

// ContactResult reports the outcome of both legs of a contact submission.
type ContactResult struct {
	AdminMessageID        string
	ConfirmationMessageID string

	// ConfirmationErr is set when only the customer confirmation failed.
	ConfirmationErr error
}

// Partial reports whether the submission was delivered without its confirmation.
func (r *ContactResult) Partial() bool {
	return r != nil && r.ConfirmationErr != nil
}

// ContactService relays validated submissions as email.
type ContactService interface {
	// SubmitContact sends the admin notification, then the customer
	// confirmation. Both sends are always attempted. The submission succeeds
	// iff the admin notification was accepted; a failed confirmation only
	// shows up in ContactResult and the logs.
	//
	// sub must already be validated and sanitized.
	SubmitContact(ctx context.Context, sub domain.ContactSubmission, clientIP string) (*ContactResult, error)

	// SubscribeNewsletter notifies the admin inbox of a new subscriber.
	SubscribeNewsletter(ctx context.Context, sub domain.NewsletterSubscription, clientIP string) error
}

type contactService struct {
	sender  email.Sender
	builder *email.Builder
	logger  *slog.Logger
}

// NewContactService creates a ContactService that sends through sender.
func NewContactService(sender email.Sender, builder *email.Builder, logger *slog.Logger) ContactService {
	if logger == nil {
		logger = slog.Default()
	}
	return &contactService{
		sender:  sender,
		builder: builder,
		logger:  logger,
	}
}

func (s *contactService) SubmitContact(ctx context.Context, sub domain.ContactSubmission, clientIP string) (*ContactResult, error) {
	const op = "contact.submit"

	adminMsg, err := s.builder.AdminNotification(sub, clientIP)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to render admin notification")
	}
	confirmMsg, err := s.builder.CustomerConfirmation(sub)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to render customer confirmation")
	}

	adminID, adminErr := s.send(ctx, telemetry.TemplateAdmin, adminMsg)
	confirmID, confirmErr := s.send(ctx, telemetry.TemplateConfirmation, confirmMsg)

	logger := s.logger.With(
		"op", op,
		"email", sub.Email,
		"client_ip", clientIP,
	)

	switch {
	case adminErr == nil && confirmErr == nil:
		logger.Info("contact submission delivered",
			"admin_message_id", adminID,
			"confirmation_message_id", confirmID,
		)
		telemetry.RecordSubmission(telemetry.FormContact, telemetry.ResultSuccess)
		return &ContactResult{AdminMessageID: adminID, ConfirmationMessageID: confirmID}, nil

	case adminErr == nil:
		logger.Warn("contact submission partial failure",
			"failed_leg", telemetry.TemplateConfirmation,
			"kind", email.KindOf(confirmErr),
			"admin_message_id", adminID,
			"error", confirmErr,
		)
		telemetry.RecordSubmission(telemetry.FormContact, telemetry.ResultPartial)
		return &ContactResult{AdminMessageID: adminID, ConfirmationErr: confirmErr}, nil

	case confirmErr == nil:
		logger.Error("contact submission partial failure",
			"failed_leg", telemetry.TemplateAdmin,
			"kind", email.KindOf(adminErr),
			"confirmation_message_id", confirmID,
			"error", adminErr,
		)
	default:
		logger.Error("contact submission failed",
			"kind", email.KindOf(adminErr),
			"error", adminErr,
			"confirmation_error", confirmErr,
		)
	}

	telemetry.RecordSubmission(telemetry.FormContact, telemetry.ResultFailed)
	return nil, domain.Public(adminErr, email.UserMessage(email.KindOf(adminErr)))
}

func (s *contactService) SubscribeNewsletter(ctx context.Context, sub domain.NewsletterSubscription, clientIP string) error {
	const op = "newsletter.subscribe"

	msg, err := s.builder.NewsletterNotification(sub.Email, clientIP)
	if err != nil {
		return domain.Internal(err, op, "failed to render newsletter notification")
	}

	id, err := s.send(ctx, telemetry.TemplateNewsletter, msg)
	if err != nil {
		s.logger.Error("newsletter subscription failed",
			"op", op,
			"email", sub.Email,
			"kind", email.KindOf(err),
			"error", err,
		)
		telemetry.RecordSubmission(telemetry.FormNewsletter, telemetry.ResultFailed)
		return domain.Public(err, email.UserMessage(email.KindOf(err)))
	}

	s.logger.Info("newsletter subscription delivered",
		"op", op,
		"email", sub.Email,
		"message_id", id,
	)
	telemetry.RecordSubmission(telemetry.FormNewsletter, telemetry.ResultSuccess)
	return nil
}

// send delivers one message and records its metrics. Failures are also
// reported to error tracking with the template name.
func (s *contactService) send(ctx context.Context, template string, msg *email.Message) (string, error) {
	start := time.Now()
	id, err := s.sender.Send(ctx, msg)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		kind := email.KindOf(err)
		telemetry.RecordEmail(template, elapsed, string(kind))
		telemetry.CaptureErrorFromContext(ctx, err, map[string]interface{}{
			"template": template,
			"kind":     string(kind),
		})
		return "", err
	}

	telemetry.RecordEmail(template, elapsed, "")
	telemetry.AddBreadcrumb(ctx, "email", "sent "+template, map[string]interface{}{"message_id": id})
	return id, nil
}
