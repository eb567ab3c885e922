package pubsub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
)

// jetStreamBus is the JetStream plumbing shared by the external and the
// embedded NATS transports: publish to one subject, fan the stream back
// out to local subscriber channels.
type jetStreamBus struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	sub     *nats.Subscription

	mu          sync.RWMutex
	subscribers []chan Event
}

func newJetStreamBus(nc *nats.Conn, subject string) (*jetStreamBus, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &jetStreamBus{nc: nc, js: js, subject: subject}, nil
}

// ensureStream creates the stream unless it already exists
func (b *jetStreamBus) ensureStream(name string, storage nats.StorageType, maxAge time.Duration) error {
	if _, err := b.js.StreamInfo(name); err == nil {
		return nil
	}
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{b.subject},
		Storage:  storage,
		MaxAge:   maxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	logger.Info("JetStream stream ready", "stream", name, "subject", b.subject)
	return nil
}

// consume subscribes to new messages on the subject and broadcasts them locally
func (b *jetStreamBus) consume() error {
	sub, err := b.js.Subscribe(b.subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event from JetStream", "error", err)
			msg.Nak()
			return
		}
		b.broadcast(event)
		msg.Ack()
	}, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	b.sub = sub
	return nil
}

func (b *jetStreamBus) broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			logger.Warn("NATS: Skipping slow subscriber", "event_type", event.Type)
		}
	}
}

// Publish publishes an event to JetStream. Errors are returned so callers
// can retry; the connection reconnects on its own.
func (b *jetStreamBus) Publish(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.Type, err)
	}
	if _, err := b.js.Publish(b.subject, data); err != nil {
		return fmt.Errorf("publish %s to %s: %w", event.Type, b.subject, err)
	}
	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", b.subject)
	return nil
}

// Subscribe creates a subscription channel for events
func (b *jetStreamBus) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription channel
func (b *jetStreamBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// SubscribeJetStream creates a durable consumer so several instances can
// share the work of processing events.
func (b *jetStreamBus) SubscribeJetStream(consumerName string, handler func(Event)) error {
	_, err := b.js.Subscribe(b.subject, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("Failed to unmarshal event", "error", err, "consumer", consumerName)
			msg.Nak()
			return
		}
		handler(event)
		msg.Ack()
	}, nats.Durable(consumerName), nats.ManualAck())
	return err
}

// SubscriberCount returns the number of active local subscribers
func (b *jetStreamBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Connected reports whether the NATS connection is up
func (b *jetStreamBus) Connected() bool {
	return b.nc != nil && b.nc.IsConnected()
}

func (b *jetStreamBus) close() {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}

	b.mu.Lock()
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
	b.mu.Unlock()

	if b.nc != nil {
		b.nc.Close()
	}
}
