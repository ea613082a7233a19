// Package notify delivers feedback to submitters. Exactly one feedback
// message is attempted per processed submission, success or error.
package notify

import (
	"context"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
)

// Notifier sends feedback for a completed grading attempt. Both operations
// are fallible; the pipeline treats failures as terminal-and-logged once
// persistence has completed.
type Notifier interface {
	SendSuccess(ctx context.Context, recipient, subject string, result models.GradingResult) error
	SendError(ctx context.Context, recipient, subject, reason string) error
}

// sanitizer strips any markup the model may have emitted before its text is
// embedded in an outbound message.
var sanitizer = bluemonday.StrictPolicy()

// SuccessBody composes the plain-text body for a graded submission. Model
// text is treated as opaque data: it is sanitized, never interpreted as
// template syntax, so braces and other formatting characters pass through
// verbatim.
func SuccessBody(result models.GradingResult) string {
	builder := strings.Builder{}
	builder.WriteString("Hello ")
	builder.WriteString(result.StudentName)
	builder.WriteString(",\n\nYour assignment has been graded.\n\nOverall grade: ")
	builder.WriteString(result.OverallGrade)
	builder.WriteString("\n\n")

	feedback := sanitizer.Sanitize(result.Feedback)
	if feedback != "" {
		builder.WriteString("Feedback:\n")
		builder.WriteString(feedback)
		builder.WriteString("\n\n")
	}

	if len(result.CriteriaScores) > 0 {
		builder.WriteString("Per-criterion breakdown:\n")
		for _, score := range result.CriteriaScores {
			builder.WriteString("- ")
			builder.WriteString(score.Criterion)
			builder.WriteString(": ")
			builder.WriteString(strconv.FormatFloat(score.Score, 'f', -1, 64))
			if justification := sanitizer.Sanitize(score.Justification); justification != "" {
				builder.WriteString(" (")
				builder.WriteString(justification)
				builder.WriteString(")")
			}
			if detail := sanitizer.Sanitize(score.Detail); detail != "" {
				builder.WriteString("\n  ")
				builder.WriteString(detail)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString("This feedback was generated automatically.\n")
	return builder.String()
}

// ErrorBody composes the plain-text body sent when grading failed. The
// reason is a human-readable summary; raw model output never appears here.
func ErrorBody(reason string) string {
	builder := strings.Builder{}
	builder.WriteString("Hello,\n\nWe are sorry: your assignment could not be graded automatically.\n\n")
	if reason != "" {
		builder.WriteString("Reason: ")
		builder.WriteString(reason)
		builder.WriteString("\n\n")
	}
	builder.WriteString("Please try submitting again later, or contact your instructor.\n")
	return builder.String()
}

// FeedbackSubject derives the outbound subject line, echoing the original
// subject when one exists.
func FeedbackSubject(original string) string {
	original = strings.TrimSpace(original)
	if original == "" {
		return "Your assignment feedback"
	}
	if strings.HasPrefix(strings.ToLower(original), "re:") {
		return original
	}
	return "Re: " + original
}
