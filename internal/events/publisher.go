// Package events publishes orchestration outcomes to an external event
// stream. Consumers are out of scope (spec §6.3); publication failure is
// logged and never propagated back into the orchestration path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	nc "github.com/nats-io/nats.go"

	"github.com/sprintlabs/orchestrator/internal/model"
)

// DecisionEvent is the payload published under the decision subject. It
// carries the decision, the reasoning lines (including the self-heal
// reasoning behind any cronjob action) and the warnings; the analysis,
// metrics and advisory of the composite response are not included.
type DecisionEvent struct {
	ProjectID   string        `json:"project_id"`
	PublishedAt time.Time     `json:"published_at"`
	Decision    model.Decision `json:"decision"`
	Reasoning   []string      `json:"reasoning,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// Publisher wraps a NATS connection with reconnect handling and a single
// typed publish method for ORCHESTRATION_DECISION events.
type Publisher struct {
	conn    *nc.Conn
	subject string
	logger  *slog.Logger
}

// New connects to the configured NATS URL with indefinite reconnects, the
// way a long-lived service collaborator should never give up on its
// broker.
func New(url, subject string, logger *slog.Logger) (*Publisher, error) {
	opts := []nc.Option{
		nc.Name("orchestrator"),
		nc.ReconnectWait(2 * time.Second),
		nc.MaxReconnects(-1),
		nc.DisconnectErrHandler(func(_ *nc.Conn, err error) {
			if err != nil {
				logger.Warn("events: disconnected from NATS", "error", err)
			}
		}),
		nc.ReconnectHandler(func(conn *nc.Conn) {
			logger.Info("events: reconnected to NATS", "url", conn.ConnectedUrl())
		}),
		nc.ClosedHandler(func(*nc.Conn) {
			logger.Info("events: NATS connection closed")
		}),
	}

	conn, err := nc.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect to NATS: %w", err)
	}

	return &Publisher{conn: conn, subject: subject, logger: logger}, nil
}

// Close closes the underlying NATS connection without draining pending
// messages.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishDecision publishes an ORCHESTRATION_DECISION event. A publish
// failure is logged and swallowed; callers never see an error, matching
// the "publication failure is logged, not propagated" contract.
func (p *Publisher) PublishDecision(_ context.Context, projectID string, decision model.Decision, reasoning, warnings []string) {
	evt := DecisionEvent{
		ProjectID:   projectID,
		PublishedAt: time.Now().UTC(),
		Decision:    decision,
		Reasoning:   reasoning,
		Warnings:    warnings,
	}

	data, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("events: failed to marshal decision event", "project_id", projectID, "error", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Error("events: failed to publish decision event", "project_id", projectID, "subject", p.subject, "error", err)
	}
}
