// Package events publishes grading outcomes for downstream consumers.
package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/avalos-dev/assignment-reviewer/internal/pipeline"
)

// DefaultSubject is the NATS subject grading events are published on.
const DefaultSubject = "reviewer.grading.outcomes"

// NATSPublisher fans grading outcomes out over NATS. Publishing is
// best-effort: a delivery failure is logged and never surfaces back into the
// pipeline.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher builds a publisher for the given connection. An empty
// subject falls back to DefaultSubject.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish sends one outcome event. A publisher built without a connection
// drops events silently so NATS stays optional.
func (p *NATSPublisher) Publish(_ context.Context, event pipeline.Event) {
	if p.conn == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode grading event")
		return
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", p.subject).Msg("failed to publish grading event")
		return
	}

	p.logger.Debug().Str("artifact_id", event.ArtifactID).Bool("done", event.Done).Msg("grading event published")
}
