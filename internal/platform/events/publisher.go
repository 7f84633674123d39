// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectSubmissionCompleted = "dataquest.submission.completed"
	SubjectAchievementUnlocked = "dataquest.achievement.unlocked"
	SubjectMatchCompleted      = "dataquest.pvp.completed"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

type envelope struct {
	Subject    string          `json:"subject"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type NatsPublisher struct {
	conn *nats.Conn
}

func Connect(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("data-quest"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("events.Connect: %w", err)
	}
	return &NatsPublisher{conn: nc}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(subject, payload, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("NatsPublisher.Publish %s: %w", subject, err)
	}
	return nil
}

func (p *NatsPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

// Encode wraps payload in the envelope every subscriber receives.
func Encode(subject string, payload interface{}, at time.Time) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", subject, err)
	}
	return json.Marshal(envelope{Subject: subject, OccurredAt: at, Data: data})
}

// Noop discards events when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, interface{}) error { return nil }
