// Package pipeline drives a submission end to end: extraction, hint
// parsing, grading, persistence and notification. Failures are isolated per
// submission; one bad artifact never stops a batch.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/avalos-dev/assignment-reviewer/internal/grader"
	"github.com/avalos-dev/assignment-reviewer/internal/models"
	"github.com/avalos-dev/assignment-reviewer/internal/notify"
	"github.com/avalos-dev/assignment-reviewer/internal/observability"
	"github.com/avalos-dev/assignment-reviewer/internal/parse"
)

// Stage identifies where in the pipeline a submission failed.
type Stage string

const (
	StageGrading      Stage = "grading"
	StagePersistence  Stage = "persistence"
	StageNotification Stage = "notification"
	// StagePipeline covers recovered panics from the batch isolation
	// boundary; no component should ever reach it.
	StagePipeline Stage = "pipeline"
)

// Outcome is the terminal result of processing one submission.
type Outcome struct {
	ArtifactID  string
	Done        bool
	FailedStage Stage
	Reason      string
	// GradingKind tags grading failures so callers can branch without
	// matching on error text.
	GradingKind grader.ErrorKind
	// Transient marks failures worth retrying on a later cycle; the mail
	// poller leaves the originating message unseen for those.
	Transient bool
	// Grading is the structured result when grading succeeded, regardless
	// of later persistence or notification failures.
	Grading *models.GradingResult
	Result  *models.StoredResult
}

// Terminal reports whether the outcome should be considered final for
// mark-seen purposes.
func (o Outcome) Terminal() bool {
	return !o.Transient
}

// Event is published after each terminal outcome when an event publisher is
// configured.
type Event struct {
	ArtifactID string    `json:"artifact_id"`
	Source     string    `json:"source"`
	Done       bool      `json:"done"`
	Stage      string    `json:"stage,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TextExtractor converts PDF bytes to plain text, never failing.
type TextExtractor interface {
	Extract(artifact []byte) string
}

// GradingEngine grades submission text against a named rubric.
type GradingEngine interface {
	Grade(ctx context.Context, text, rubricName string) (models.GradingResult, *grader.GradingError)
}

// ResultAppender persists one stored result.
type ResultAppender interface {
	Append(ctx context.Context, result models.StoredResult) error
}

// EventPublisher receives terminal-outcome events. Implementations must not
// block the pipeline on delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// Pipeline orchestrates one submission through all stages.
type Pipeline struct {
	extractor     TextExtractor
	engine        GradingEngine
	store         ResultAppender
	notifier      notify.Notifier
	publisher     EventPublisher
	defaultRubric string
	logger        zerolog.Logger
	now           func() time.Time
}

// New constructs a pipeline. publisher may be nil.
func New(extractor TextExtractor, engine GradingEngine, store ResultAppender, notifier notify.Notifier, publisher EventPublisher, defaultRubric string, logger zerolog.Logger) *Pipeline {
	if defaultRubric == "" {
		defaultRubric = "generic"
	}

	return &Pipeline{
		extractor:     extractor,
		engine:        engine,
		store:         store,
		notifier:      notifier,
		publisher:     publisher,
		defaultRubric: defaultRubric,
		logger:        logger.With().Str("component", "pipeline").Logger(),
		now:           time.Now,
	}
}

// Process runs one submission to a terminal outcome. It never panics and
// never returns before feedback has been attempted (when a recipient is
// known).
func (p *Pipeline) Process(ctx context.Context, sub models.Submission) Outcome {
	start := p.now()
	defer func() {
		observability.PipelineDuration().Observe(time.Since(start).Seconds())
	}()

	logger := p.logger.With().Str("artifact_id", sub.ArtifactID).Str("source", string(sub.Source)).Logger()

	text := p.extractor.Extract(sub.RawBytes)
	if text == "" {
		// Still graded: an empty submission is a valid request whose score
		// is the engine's business.
		observability.EmptyExtractions().Inc()
		logger.Warn().Msg("extraction yielded no text")
	}

	hints := parse.Hints(text)
	recipient := sub.ReplyTo
	if recipient == "" && hints.Email != models.Unknown {
		recipient = hints.Email
	}

	rubricName := sub.RubricName
	if rubricName == "" {
		rubricName = p.defaultRubric
	}

	result, gerr := p.engine.Grade(ctx, text, rubricName)
	if gerr != nil {
		p.sendError(ctx, logger, recipient, sub.Subject, gerr)
		return p.finish(ctx, sub, Outcome{
			ArtifactID:  sub.ArtifactID,
			FailedStage: StageGrading,
			Reason:      gerr.Detail,
			GradingKind: gerr.Kind,
			Transient:   gerr.Transient(),
		})
	}

	stored := p.buildStored(sub, hints, recipient, result)

	// The append runs to completion even when the caller goes away; a
	// client disconnect must not lose a grading that already happened.
	persistErr := p.store.Append(context.WithoutCancel(ctx), stored)
	if persistErr != nil {
		logger.Error().Err(persistErr).Msg("failed to persist result")
	}

	var notifyErr error
	if recipient == "" {
		logger.Debug().Msg("no recipient known, feedback skipped")
	} else if notifyErr = p.notifier.SendSuccess(ctx, recipient, sub.Subject, result); notifyErr != nil {
		logger.Error().Err(notifyErr).Msg("failed to send success feedback")
	}

	outcome := Outcome{ArtifactID: sub.ArtifactID, Done: true, Grading: &result, Result: &stored}
	switch {
	case persistErr != nil:
		outcome = Outcome{
			ArtifactID:  sub.ArtifactID,
			FailedStage: StagePersistence,
			Reason:      persistErr.Error(),
			Grading:     &result,
			Result:      &stored,
		}
	case notifyErr != nil:
		// Terminal and logged only: the stored record is not rolled back.
		outcome = Outcome{
			ArtifactID:  sub.ArtifactID,
			FailedStage: StageNotification,
			Reason:      notifyErr.Error(),
			Grading:     &result,
			Result:      &stored,
		}
	}

	return p.finish(ctx, sub, outcome)
}

// ProcessBatch processes submissions sequentially in the order given. A
// failure, including a panic, on one submission does not prevent the rest of
// the batch from running.
func (p *Pipeline) ProcessBatch(ctx context.Context, subs []models.Submission) []Outcome {
	outcomes := make([]Outcome, 0, len(subs))
	for _, sub := range subs {
		outcomes = append(outcomes, p.processIsolated(ctx, sub))
	}
	return outcomes
}

func (p *Pipeline) processIsolated(ctx context.Context, sub models.Submission) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("artifact_id", sub.ArtifactID).Interface("panic", r).Msg("submission processing panicked")
			outcome = p.finish(ctx, sub, Outcome{
				ArtifactID:  sub.ArtifactID,
				FailedStage: StagePipeline,
				Reason:      fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	return p.Process(ctx, sub)
}

func (p *Pipeline) buildStored(sub models.Submission, hints models.ParsedHints, recipient string, result models.GradingResult) models.StoredResult {
	name := result.StudentName
	if name == "" || name == models.Unknown {
		name = hints.Name
	}

	email := recipient
	if email == "" {
		email = hints.Email
	}

	fileName := sub.FileName
	if fileName == "" {
		fileName = sub.ArtifactID
	}

	gradeOutput := "Grade: " + result.OverallGrade
	if result.Feedback != "" {
		gradeOutput += "\n\n" + result.Feedback
	}

	return models.StoredResult{
		Name:           name,
		Email:          email,
		Course:         hints.Course,
		FileName:       fileName,
		GradeOutput:    gradeOutput,
		Timestamp:      p.now(),
		CriteriaScores: result.CriteriaScores,
	}
}

// sendError delivers error feedback best-effort. The submitter sees a
// generic reason per failure kind, never raw model output.
func (p *Pipeline) sendError(ctx context.Context, logger zerolog.Logger, recipient, subject string, gerr *grader.GradingError) {
	logger.Error().Str("kind", string(gerr.Kind)).Str("detail", gerr.Detail).Msg("grading failed")

	if recipient == "" {
		logger.Debug().Msg("no recipient known, error feedback skipped")
		return
	}

	if err := p.notifier.SendError(ctx, recipient, subject, submitterReason(gerr.Kind)); err != nil {
		logger.Error().Err(err).Msg("failed to send error feedback")
	}
}

func submitterReason(kind grader.ErrorKind) string {
	switch kind {
	case grader.KindRubricMissing:
		return "the requested grading rubric is not defined"
	case grader.KindEngineUnavailable:
		return "the grading service is temporarily unavailable"
	case grader.KindMalformedResponse:
		return "the grading service returned an unexpected answer"
	default:
		return "an internal error occurred"
	}
}

func (p *Pipeline) finish(ctx context.Context, sub models.Submission, outcome Outcome) Outcome {
	if outcome.Done {
		observability.Submissions().WithLabelValues(string(sub.Source), "done").Inc()
	} else {
		observability.Submissions().WithLabelValues(string(sub.Source), "failed").Inc()
		observability.PipelineFailures().WithLabelValues(string(outcome.FailedStage)).Inc()
	}

	if p.publisher != nil {
		p.publisher.Publish(ctx, Event{
			ArtifactID: outcome.ArtifactID,
			Source:     string(sub.Source),
			Done:       outcome.Done,
			Stage:      string(outcome.FailedStage),
			Reason:     outcome.Reason,
			Timestamp:  p.now(),
		})
	}

	return outcome
}
