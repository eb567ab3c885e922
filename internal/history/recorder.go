package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/draft"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/pubsub"
)

// Store persists committed picks. The DAL and the ClickHouse client both qualify.
type Store interface {
	RecordPick(ctx context.Context, rec models.PickRecord) error
}

// durable is implemented by the JetStream transports. A durable consumer
// lets several instances share one history writer.
type durable interface {
	SubscribeJetStream(consumerName string, handler func(pubsub.Event)) error
}

// lossless is implemented by the local bus. Its consumers never drop events.
type lossless interface {
	Consume(handler func(pubsub.Event)) (stop func())
}

const consumerName = "draft-history"

// Recorder writes every draft:pick event to its stores
type Recorder struct {
	bus    pubsub.Publisher
	stores []Store
	now    func() time.Time
}

// NewRecorder creates a recorder reading from bus
func NewRecorder(bus pubsub.Publisher, stores ...Store) *Recorder {
	return &Recorder{bus: bus, stores: stores, now: time.Now}
}

// Run consumes events until ctx is done
func (r *Recorder) Run(ctx context.Context) error {
	if d, ok := r.bus.(durable); ok {
		err := d.SubscribeJetStream(consumerName, func(ev pubsub.Event) {
			r.log(r.Handle(ctx, ev))
		})
		if err == nil {
			logger.Info("History recorder attached to durable consumer", "consumer", consumerName)
			<-ctx.Done()
			return nil
		}
		logger.Warn("Durable consumer unavailable, recording from local subscription", "error", err)
	}

	if l, ok := r.bus.(lossless); ok {
		stop := l.Consume(func(ev pubsub.Event) {
			r.log(r.Handle(ctx, ev))
		})
		<-ctx.Done()
		stop()
		return nil
	}

	ch := r.bus.Subscribe()
	defer r.bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			r.log(r.Handle(ctx, ev))
		}
	}
}

func (r *Recorder) log(err error) {
	if err != nil {
		logger.Error("Failed to record pick", "error", err)
	}
}

// Handle records ev when it is a pick and ignores everything else
func (r *Recorder) Handle(ctx context.Context, ev pubsub.Event) error {
	if ev.Type != string(draft.EventPick) {
		return nil
	}
	var de draft.Event
	if err := ev.Decode(&de); err != nil {
		return fmt.Errorf("decode pick event: %w", err)
	}
	rec, ok := ToRecord(de, r.now())
	if !ok {
		return fmt.Errorf("pick event for draft %q is missing participant or item", ev.DraftID)
	}

	var errs []error
	for _, s := range r.stores {
		if err := s.RecordPick(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ToRecord flattens a pick event into a history record
func ToRecord(e draft.Event, at time.Time) (models.PickRecord, bool) {
	if e.Participant == nil || e.Item == nil {
		return models.PickRecord{}, false
	}
	return models.PickRecord{
		DraftID:         e.DraftID,
		Round:           e.Round,
		PickIndex:       e.PickIndex,
		ParticipantID:   e.Participant.ID,
		ParticipantName: e.Participant.DisplayName,
		Item:            e.Item.Name,
		Tier:            e.Item.Tier,
		Trigger:         e.Trigger,
		RerollsUsed:     e.RerollsUsed,
		PickedAt:        at.UTC(),
	}, true
}
