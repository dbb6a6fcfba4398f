package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/pkg/config"
)

// Event is the payload published for every schedule mutation.
type Event struct {
	Type         string      `json:"type"`
	DepartmentID string      `json:"department_id"`
	ActorID      string      `json:"actor_id,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
	Payload      interface{} `json:"payload,omitempty"`
}

// Publisher delivers domain events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type natsConn interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
	Drain() error
}

// NATSPublisher publishes events as JSON on "<prefix>.<event type>".
type NATSPublisher struct {
	conn   natsConn
	prefix string
	logger *zap.Logger
}

// Connect dials NATS with reconnect handling. An empty URL yields a no-op publisher.
func Connect(cfg config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NATSURL == "" {
		logger.Info("event bus disabled")
		return NopPublisher{}, nil
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("timetable-api"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("nats connection closed", zap.Error(nc.LastError()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
	}

	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return newNATSPublisher(conn, cfg.SubjectPrefix, logger), nil
}

func newNATSPublisher(conn natsConn, prefix string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish encodes and sends the event.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Type, err)
	}
	if err := p.conn.Publish(p.Subject(event.Type), body); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Type, err)
	}
	return nil
}

// Close drains pending messages.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
