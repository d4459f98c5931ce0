// Package outbound publishes simulation events to NATS JetStream for
// downstream consumers (API fan-out, analytics). Publishing is best-effort:
// a failed publish is logged and counted, never blocks or rolls back a tick.
package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CorpKernel/internal/observability"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// Event types published after a tick commits.
const (
	EventTickAdvanced       = "tick_advanced"
	EventTradeExecuted      = "trade_executed"
	EventContractGenerated  = "contract_generated"
	EventContractExpired    = "contract_expired"
	EventProductionComplete = "production_completed"
	EventResearchComplete   = "research_completed"
)

// Event is one outbound simulation event. Subjects follow the pattern
// corp.sim.events.{event_type}.
type Event struct {
	Tick      int64       `json:"tick"`
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher publishes committed simulation events to JetStream.
type Publisher struct {
	js      jetstream.JetStream
	log     zerolog.Logger
	metrics *observability.Metrics
}

func NewPublisher(js jetstream.JetStream, log zerolog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{js: js, log: log, metrics: metrics}
}

// Publish sends one event. Errors are absorbed after logging; downstream
// consumers can always re-read committed state directly.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", evt.EventType).Msg("outbound event marshal failed")
		p.metrics.PublishErrors.Inc()
		return
	}

	subject := fmt.Sprintf("corp.sim.events.%s", evt.EventType)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).Int64("tick", evt.Tick).Str("subject", subject).Msg("outbound publish failed")
		p.metrics.PublishErrors.Inc()
		return
	}
	p.metrics.EventsPublished.WithLabelValues(evt.EventType).Inc()
}

// EnsureStream creates or updates the outbound events stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "CORP_SIM_EVENTS",
		Subjects:  []string{"corp.sim.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}
