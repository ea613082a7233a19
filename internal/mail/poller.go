package mail

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/avalos-dev/assignment-reviewer/internal/models"
	"github.com/avalos-dev/assignment-reviewer/internal/pipeline"
)

// Runner processes a batch of submissions to terminal outcomes.
type Runner interface {
	ProcessBatch(ctx context.Context, subs []models.Submission) []pipeline.Outcome
}

// Stager holds artifacts on disk between ingestion and a terminal outcome.
type Stager interface {
	Save(name string, data []byte) (string, error)
	Remove(name string) error
}

// Poller drives batch ingestion from the mail source at a fixed interval.
//
// Mark-seen policy: a message is flagged seen only once every submission
// extracted from it reached a terminal outcome. Transient failures leave the
// message unseen so the next cycle retries it; messages without PDF
// attachments are marked seen immediately so they cannot wedge the inbox.
type Poller struct {
	source   Source
	runner   Runner
	area     Stager
	interval time.Duration
	logger   zerolog.Logger
}

// NewPoller constructs a mailbox poller.
func NewPoller(source Source, runner Runner, area Stager, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		source:   source,
		runner:   runner,
		area:     area,
		interval: interval,
		logger:   logger.With().Str("component", "mail_poller").Logger(),
	}
}

// Run polls until ctx is cancelled. The first cycle starts immediately.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Msg("mail poller started")

	p.Cycle(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("mail poller stopped")
			return
		case <-ticker.C:
			p.Cycle(ctx)
		}
	}
}

// Cycle runs one full ingestion pass. A cycle-level failure (unreachable
// mailbox, fetch error) aborts the pass and is retried at the next interval;
// per-submission failures are isolated by the pipeline and never abort the
// batch.
func (p *Poller) Cycle(ctx context.Context) {
	messages, err := p.source.FetchUnseen(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("mailbox cycle failed")
		return
	}

	if len(messages) == 0 {
		p.logger.Debug().Msg("no unseen messages")
		return
	}

	var seen []uint32
	for _, message := range messages {
		if p.processMessage(ctx, message) {
			seen = append(seen, message.ID)
		}
	}

	if len(seen) > 0 {
		if err := p.source.MarkSeen(ctx, seen); err != nil {
			p.logger.Error().Err(err).Msg("failed to mark messages seen")
		}
	}
}

// processMessage stages and pipelines one message's attachments, reporting
// whether the message reached a terminal outcome.
func (p *Poller) processMessage(ctx context.Context, message Message) bool {
	if len(message.Attachments) == 0 {
		p.logger.Debug().Str("from", message.From).Msg("message has no pdf attachments")
		return true
	}

	stagedAll := true
	subs := make([]models.Submission, 0, len(message.Attachments))
	for _, attachment := range message.Attachments {
		staged, err := p.area.Save(attachment.FileName, attachment.Data)
		if err != nil {
			p.logger.Error().Str("file", attachment.FileName).Err(err).Msg("failed to stage attachment")
			stagedAll = false
			continue
		}

		subs = append(subs, models.Submission{
			ArtifactID: staged,
			FileName:   staged,
			Source:     models.SourceEmail,
			ReplyTo:    message.From,
			Subject:    message.Subject,
			RawBytes:   attachment.Data,
		})
	}

	if len(subs) == 0 {
		// Nothing could be staged; leave the message unseen for retry.
		return false
	}

	outcomes := p.runner.ProcessBatch(ctx, subs)

	// An attachment that failed to stage was never processed, so the
	// message stays unseen even when everything else is terminal.
	terminal := stagedAll
	for i, outcome := range outcomes {
		if !outcome.Terminal() {
			terminal = false
			continue
		}
		if err := p.area.Remove(subs[i].FileName); err != nil {
			p.logger.Warn().Str("file", subs[i].FileName).Err(err).Msg("failed to remove staged artifact")
		}
	}

	return terminal
}
