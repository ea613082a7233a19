package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
)

// LogNotifier is a delivery provider that only logs feedback. It is used in
// development and whenever SMTP is not configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a logging notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "log_notifier").Logger()}
}

// SendSuccess logs the feedback and reports success.
func (l *LogNotifier) SendSuccess(ctx context.Context, recipient, subject string, result models.GradingResult) error {
	l.logger.Info().
		Str("recipient", recipient).
		Str("subject", FeedbackSubject(subject)).
		Str("overall_grade", result.OverallGrade).
		Msg("success feedback (log only)")
	return nil
}

// SendError logs the error feedback and reports success.
func (l *LogNotifier) SendError(ctx context.Context, recipient, subject, reason string) error {
	l.logger.Info().
		Str("recipient", recipient).
		Str("subject", FeedbackSubject(subject)).
		Str("reason", reason).
		Msg("error feedback (log only)")
	return nil
}
