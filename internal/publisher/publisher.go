// Package publisher delivers live board updates to subscribers.
package publisher

import (
	"context"
	"log/slog"
)

// Publisher sends a payload to a topic. Payloads describe current state, so
// a broker may keep the last one per topic for late subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// LogPublisher logs publishes instead of sending them. It stands in when no
// broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	slog.Debug("live update", "topic", topic, "bytes", len(payload))
	return nil
}

func (LogPublisher) Close() error { return nil }
