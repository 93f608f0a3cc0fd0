package publisher

import (
	"context"
	"strings"
	"sync"
)

// Message records a single published message.
type Message struct {
	Topic   string
	Payload []byte
}

// MockPublisher behaves like a retaining broker for tests: it keeps every
// message in order and the latest payload per topic.
type MockPublisher struct {
	mu       sync.Mutex
	log      []Message
	retained map[string][]byte
	failures map[string]error // topic prefix -> error returned by Publish
	closed   bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		retained: make(map[string][]byte),
		failures: make(map[string]error),
	}
}

func (m *MockPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for prefix, err := range m.failures {
		if strings.HasPrefix(topic, prefix) {
			return err
		}
	}
	kept := append([]byte(nil), payload...)
	m.log = append(m.log, Message{Topic: topic, Payload: kept})
	m.retained[topic] = kept
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Messages returns every message published since the last Reset.
func (m *MockPublisher) Messages() []Message {
	return m.Matching("")
}

// Matching returns the messages whose topic starts with prefix, in publish
// order.
func (m *MockPublisher) Matching(prefix string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.log {
		if strings.HasPrefix(msg.Topic, prefix) {
			out = append(out, msg)
		}
	}
	return out
}

// Last returns the retained payload of topic, the way a broker would hand
// it to a new subscriber. Reset does not clear it.
func (m *MockPublisher) Last(topic string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.retained[topic]
	return payload, ok
}

// Reset clears the message log.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
}

// Closed returns whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetError makes every Publish fail with err. Pass nil to clear.
func (m *MockPublisher) SetError(err error) {
	m.FailPrefix("", err)
}

// FailPrefix makes Publish fail with err for topics starting with prefix.
// Pass a nil err to clear.
func (m *MockPublisher) FailPrefix(prefix string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, prefix)
		return
	}
	m.failures[prefix] = err
}
