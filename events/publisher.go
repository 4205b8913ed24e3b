// Package events emits domain events for out-of-scope consumers
// (notifications, audit). Delivery is at-least-once and deliberately not
// transactional with the reservation commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	KeyBookingConfirmed = "booking.confirmed"
	KeyPaymentFailed    = "payment.failed"
)

// BookingConfirmed is published after a reservation commits.
type BookingConfirmed struct {
	ReservationID   string `json:"reservation_id"`
	TenantID        string `json:"tenant_id"`
	Day             string `json:"day"`
	PackageID       string `json:"package_id"`
	CustomerEmail   string `json:"customer_email"`
	TotalMinor      int64  `json:"total_minor"`
	CommissionMinor int64  `json:"commission_minor"`
}

// PaymentFailed is published when an inbound payment event is terminally
// rejected, so downstream compensation (refund, operator alert) can react.
type PaymentFailed struct {
	EventID  string `json:"event_id"`
	TenantID string `json:"tenant_id"`
	Reason   string `json:"reason"`
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewAMQP connects and declares a durable topic exchange.
func NewAMQP(url, exchange string) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *amqpPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        b,
	})
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop is used when no broker is configured (local runs, tests).
type Nop struct{}

func (Nop) PublishJSON(context.Context, string, any) error { return nil }
func (Nop) Close() error                                   { return nil }
