package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"go-wabridge/internal/infrastructure/metrics"
)

// FallbackPublisher stands in when no broker is configured.
type FallbackPublisher struct {
	log zerolog.Logger
}

func NewFallback(log zerolog.Logger) *FallbackPublisher {
	return &FallbackPublisher{log: log}
}

func (p *FallbackPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Debug().Str("key", string(ev.Type)).Str("conversation_id", ev.ConversationID).Msg("no broker, event dropped")
	return nil
}

func (p *FallbackPublisher) Close() error { return nil }

// Broadcaster is satisfied by realtime.Router.
type Broadcaster interface {
	Broadcast(businessID string, payload []byte) int
}

// RealtimePublisher pushes events to the dashboards watching the business.
type RealtimePublisher struct {
	router Broadcaster
}

func NewRealtimePublisher(router Broadcaster) *RealtimePublisher {
	return &RealtimePublisher{router: router}
}

func (p *RealtimePublisher) Publish(_ context.Context, ev Event) error {
	if ev.BusinessID == "" {
		return nil
	}
	payload, err := json.Marshal(ev.Envelope())
	if err != nil {
		return err
	}
	p.router.Broadcast(ev.BusinessID, payload)
	return nil
}

func (p *RealtimePublisher) Close() error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const publishTimeout = 2 * time.Second

// Dispatcher emits events on behalf of use cases. Failures are logged and
// counted, never returned. A nil Dispatcher drops everything.
type Dispatcher struct {
	pub     Publisher
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(pub Publisher, log zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{pub: pub, log: log, metrics: m}
}

func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.pub == nil {
		return
	}
	// detached so a finished request does not cancel the publish
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := d.pub.Publish(ctx, ev); err != nil {
		d.metrics.ObserveEvent(string(ev.Type), "error")
		d.log.Warn().Err(err).Str("type", string(ev.Type)).Str("conversation_id", ev.ConversationID).Msg("publish event")
		return
	}
	d.metrics.ObserveEvent(string(ev.Type), "ok")
}
