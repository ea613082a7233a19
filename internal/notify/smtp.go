package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	mail "github.com/wneessen/go-mail"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
)

// SMTPConfig carries the connection settings for the outbound mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers feedback over SMTP.
type SMTPNotifier struct {
	client *mail.Client
	from   string
	logger zerolog.Logger
}

// NewSMTPNotifier builds an SMTP-backed notifier.
func NewSMTPNotifier(cfg SMTPConfig, logger zerolog.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp host and from address are required")
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPNotifier{
		client: client,
		from:   cfg.From,
		logger: logger.With().Str("component", "smtp_notifier").Logger(),
	}, nil
}

// SendSuccess delivers a graded-submission feedback message.
func (n *SMTPNotifier) SendSuccess(ctx context.Context, recipient, subject string, result models.GradingResult) error {
	return n.send(ctx, recipient, FeedbackSubject(subject), SuccessBody(result))
}

// SendError delivers an error-feedback message.
func (n *SMTPNotifier) SendError(ctx context.Context, recipient, subject, reason string) error {
	return n.send(ctx, recipient, FeedbackSubject(subject), ErrorBody(reason))
}

func (n *SMTPNotifier) send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" || recipient == models.Unknown {
		return fmt.Errorf("no recipient address for feedback")
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("set recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send feedback mail: %w", err)
	}

	n.logger.Info().Str("recipient", recipient).Str("subject", subject).Msg("feedback delivered")
	return nil
}
