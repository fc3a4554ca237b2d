// Package eventbus publishes and consumes domain events over NATS JetStream.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/richxcame/roundup/pkg/logger"
	"go.uber.org/zap"
)

// Event is the envelope carried on every subject.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Handler consumes one event. Returning an error leaves the message unacked for redelivery.
type Handler func(ctx context.Context, event *Event) error

// NewEvent wraps data in an envelope with a fresh ID.
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Config holds the connection settings for the bus.
type Config struct {
	URL      string
	Stream   string
	Subjects []string
	Name     string
}

// Bus is a JetStream-backed publisher/subscriber.
type Bus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
	subs   []*nats.Subscription
}

// Connect dials NATS and makes sure the stream exists.
func Connect(cfg Config) (*Bus, error) {
	if cfg.URL == "" {
		return nil, errors.New("eventbus: NATS URL is required")
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("eventbus: disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("eventbus: reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	if cfg.Stream != "" {
		if _, err := js.StreamInfo(cfg.Stream); errors.Is(err, nats.ErrStreamNotFound) {
			_, err = js.AddStream(&nats.StreamConfig{
				Name:     cfg.Stream,
				Subjects: cfg.Subjects,
				Storage:  nats.FileStorage,
				MaxAge:   7 * 24 * time.Hour,
			})
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("create stream %s: %w", cfg.Stream, err)
			}
			logger.Info("eventbus: stream created", zap.String("stream", cfg.Stream))
		} else if err != nil {
			conn.Close()
			return nil, fmt.Errorf("stream info %s: %w", cfg.Stream, err)
		}
	}

	return &Bus{conn: conn, js: js, stream: cfg.Stream}, nil
}

// Publish sends event on subject. The event ID doubles as the JetStream dedup key.
func (b *Bus) Publish(ctx context.Context, subject string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.js.Publish(subject, payload, nats.MsgId(event.ID), nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe attaches a durable consumer to subject.
func (b *Bus) Subscribe(ctx context.Context, subject, durable string, handler Handler) error {
	sub, err := b.js.Subscribe(subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("eventbus: dropping malformed event",
				zap.String("subject", msg.Subject), zap.Error(err))
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &event); err != nil {
			logger.Warn("eventbus: handler failed",
				zap.String("subject", msg.Subject),
				zap.String("event_id", event.ID),
				zap.Error(err))
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.Durable(durable), nats.ManualAck(), nats.BindStream(b.stream))
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Healthy reports whether the connection is up.
func (b *Bus) Healthy() error {
	if b == nil || b.conn == nil || !b.conn.IsConnected() {
		return errors.New("nats not connected")
	}
	return nil
}

// Close drains subscriptions and closes the connection.
func (b *Bus) Close() {
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	if b.conn != nil {
		_ = b.conn.Drain()
	}
}
