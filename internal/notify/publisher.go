package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ticketbooth/internal/model"
)

// DefaultExchange is the topic exchange booking events go to.
const DefaultExchange = "ticketbooth.bookings"

// Publisher sends booking events to a durable topic exchange.  Messages
// are persistent.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// NewPublisher dials url and declares exchange.
func NewPublisher(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("notify: dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("notify: declare exchange %s: %w", exchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// PublishJSON marshals v and publishes it under key.
func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", key, err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.log.Warn().Err(err).Str("routing_key", key).Msg("rabbitmq publish failed")
		return fmt.Errorf("notify: publish %s: %w", key, err)
	}
	return nil
}

func (p *Publisher) BookingConfirmed(ctx context.Context, occ model.EventOccurrence, req model.BookingRequest, conf model.BookingConfirmation) error {
	return p.PublishJSON(ctx, KeyBookingConfirmed, NewBookingConfirmed(occ, req, conf, time.Now()))
}

func (p *Publisher) BookingConflicted(ctx context.Context, occ model.EventOccurrence, req model.BookingRequest, reason, message string) error {
	return p.PublishJSON(ctx, KeyBookingConflict, NewBookingConflict(occ, req, reason, message, time.Now()))
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop discards every event.  It stands in when no broker is configured.
type Nop struct{}

func (Nop) BookingConfirmed(context.Context, model.EventOccurrence, model.BookingRequest, model.BookingConfirmation) error {
	return nil
}

func (Nop) BookingConflicted(context.Context, model.EventOccurrence, model.BookingRequest, string, string) error {
	return nil
}

func (Nop) Close() error { return nil }
