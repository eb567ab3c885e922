package pubsub

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
)

const defaultStreamName = "DRAFT_EVENTS"

// NATSPubSub implements pub/sub using an external NATS JetStream server
type NATSPubSub struct {
	*jetStreamBus
}

// NewNATSPubSub connects to NATS and makes sure the draft event stream exists
func NewNATSPubSub(natsURL, subject string) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("kokoloko-draft"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	bus, err := newJetStreamBus(nc, subject)
	if err != nil {
		nc.Close()
		return nil, err
	}

	// file storage, no max age: events stay available for replay
	if err := bus.ensureStream(defaultStreamName, nats.FileStorage, 0); err != nil {
		nc.Close()
		return nil, err
	}
	if err := bus.consume(); err != nil {
		nc.Close()
		return nil, err
	}

	return &NATSPubSub{jetStreamBus: bus}, nil
}

// Close closes the NATS connection
func (p *NATSPubSub) Close() {
	p.close()
}
