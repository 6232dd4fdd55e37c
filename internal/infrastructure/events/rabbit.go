package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const maxDialDelay = 60 * time.Second

type RabbitConfig struct {
	URL           string
	Exchange      string
	RetryAttempts int
	Delay         time.Duration
	Logger        zerolog.Logger
}

// DialWithRetry connects to RabbitMQ with exponential backoff and gives up
// when ctx is cancelled.
func DialWithRetry(ctx context.Context, cfg RabbitConfig) (*amqp.Connection, error) {
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			if i > 1 {
				cfg.Logger.Info().Int("attempt", i).Msg("rabbit connected")
			}
			return conn, nil
		}
		lastErr = err
		if i == attempts {
			break
		}

		sleep := delay << (i - 1)
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
		cfg.Logger.Warn().Err(err).Int("attempt", i).Dur("sleep", sleep).Msg("rabbit dial failed")

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.New("rabbit dial cancelled: " + ctx.Err().Error())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("rabbit: no connection after %d attempts: %w", attempts, lastErr)
}

// RabbitPublisher publishes envelopes to a topic exchange using the event
// type as routing key.
type RabbitPublisher struct {
	conn     *amqp.Connection
	exchange string
	log      zerolog.Logger
}

func NewRabbitPublisher(ctx context.Context, cfg RabbitConfig) (*RabbitPublisher, error) {
	if cfg.Exchange == "" {
		return nil, errors.New("rabbit: exchange is required")
	}
	conn, err := DialWithRetry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, exchange: cfg.Exchange, log: cfg.Logger}, nil
}

var _ Publisher = (*RabbitPublisher)(nil)

func (r *RabbitPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := toPublishing(ev)
	if err != nil {
		return err
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.PublishWithContext(ctx, r.exchange, string(ev.Type), false, false, msg); err != nil {
		return err
	}
	r.log.Debug().Str("key", string(ev.Type)).Str("exchange", r.exchange).Msg("published")
	return nil
}

func (r *RabbitPublisher) Close() error {
	return r.conn.Close()
}

func toPublishing(ev Event) (amqp.Publishing, error) {
	env := ev.Envelope()
	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal envelope: %w", err)
	}
	cid := env.Meta.CorrelationID
	if cid == "" {
		cid = env.Meta.ID
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.Meta.ID,
		CorrelationId: cid,
		Type:          env.Meta.Type,
		Timestamp:     env.Meta.Time,
		AppId:         producer,
		Body:          body,
	}, nil
}
