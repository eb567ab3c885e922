package mocks

import (
	"sync"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/pubsub"
)

// MockNATSPubSub is an in-memory stand-in for NATS JetStream. It keeps the
// most recent events so late subscribers can catch up, like a stream would.
type MockNATSPubSub struct {
	*pubsub.PubSub

	mu          sync.RWMutex
	messages    []pubsub.Event
	maxMessages int
}

// NewMockNATSPubSub creates a mock NATS pub/sub using the in-memory implementation
func NewMockNATSPubSub() *MockNATSPubSub {
	logger.Info("Using MOCK NATS/JetStream (in-memory pub/sub) for local development")
	return &MockNATSPubSub{
		PubSub:      pubsub.New(),
		maxMessages: 1000,
	}
}

// Publish stores the event for replay and delivers it
func (m *MockNATSPubSub) Publish(event pubsub.Event) error {
	m.mu.Lock()
	m.messages = append(m.messages, event)
	if len(m.messages) > m.maxMessages {
		m.messages = m.messages[len(m.messages)-m.maxMessages:]
	}
	m.mu.Unlock()

	return m.PubSub.Publish(event)
}

// Replay returns up to count of the most recent events, oldest first
func (m *MockNATSPubSub) Replay(count int) []pubsub.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start := max(len(m.messages)-count, 0)
	return append([]pubsub.Event(nil), m.messages[start:]...)
}

// Close is a no-op for mock
func (m *MockNATSPubSub) Close() {}
