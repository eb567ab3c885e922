package pubsub

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
)

// Event represents a pubsub event
type Event struct {
	Type    string                 `json:"type"`
	DraftID string                 `json:"draftId,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent builds an event whose payload is the JSON object form of v
func NewEvent(typ, draftID string, v any) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Event{Type: typ, DraftID: draftID, Payload: payload}, nil
}

// Decode unpacks the payload into v
func (e Event) Decode(v any) error {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Publisher is satisfied by every transport in this package
type Publisher interface {
	Publish(Event) error
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// Upstream is a publisher that broadcasts to every instance (e.g., NATS)
type Upstream = Publisher

const subscriberBuffer = 256

// PubSub implements a simple publish-subscribe system
type PubSub struct {
	mu          sync.RWMutex
	subscribers []chan Event
	consumers   []*consumer
	upstream    Upstream
}

// New creates a new PubSub instance
func New() *PubSub {
	return &PubSub{
		subscribers: []chan Event{},
	}
}

// NewWithUpstream creates a PubSub that bridges to an upstream publisher.
// Publish goes to the upstream, which broadcasts back to every instance;
// events from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		subscribers: []chan Event{},
		upstream:    upstream,
	}

	ch := upstream.Subscribe()
	go func() {
		logger.Debug("PubSub: Subscribed to upstream, waiting for events")
		for event := range ch {
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	ps.subscribers = append(ps.subscribers, ch)
	logger.Debug("PubSub: New subscriber added", "totalSubscribers", len(ps.subscribers))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, sub := range ps.subscribers {
		if sub == ch {
			close(ch)
			ps.subscribers = append(ps.subscribers[:i], ps.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers, through the upstream when one is configured
func (ps *PubSub) Publish(event Event) error {
	if ps.upstream != nil {
		if err := ps.upstream.Publish(event); err != nil {
			return fmt.Errorf("upstream publish %s: %w", event.Type, err)
		}
		return nil
	}
	ps.publishLocal(event)
	return nil
}

// publishLocal delivers to local subscribers, dropping events for full channels.
// The read lock is held so Unsubscribe cannot close a channel mid-send.
func (ps *PubSub) publishLocal(event Event) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("PubSub: Skipping slow subscriber", "type", event.Type)
		}
	}
	for _, c := range ps.consumers {
		c.push(event)
	}
}

// Consume delivers every event to handler, in order, on its own goroutine.
// Unlike Subscribe nothing is dropped: events queue until the handler
// catches up. The returned stop func detaches the handler; queued events
// not yet handled are discarded.
func (ps *PubSub) Consume(handler func(Event)) (stop func()) {
	c := &consumer{wake: make(chan struct{}, 1), done: make(chan struct{})}

	ps.mu.Lock()
	ps.consumers = append(ps.consumers, c)
	ps.mu.Unlock()

	go c.run(handler)

	var once sync.Once
	return func() {
		once.Do(func() {
			ps.mu.Lock()
			ps.consumers = slices.DeleteFunc(ps.consumers, func(x *consumer) bool { return x == c })
			ps.mu.Unlock()
			close(c.done)
		})
	}
}

type consumer struct {
	mu    sync.Mutex
	queue []Event
	wake  chan struct{}
	done  chan struct{}
}

func (c *consumer) push(event Event) {
	c.mu.Lock()
	c.queue = append(c.queue, event)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *consumer) run(handler func(Event)) {
	for {
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()

		for _, event := range batch {
			select {
			case <-c.done:
				return
			default:
			}
			handler(event)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-c.wake:
		case <-c.done:
			return
		}
	}
}

// SubscriberCount returns the number of local subscribers and consumers
func (ps *PubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers) + len(ps.consumers)
}

// Connected reports the upstream connection state. A local-only bus is always connected.
func (ps *PubSub) Connected() bool {
	if c, ok := ps.upstream.(interface{ Connected() bool }); ok {
		return c.Connected()
	}
	return true
}
