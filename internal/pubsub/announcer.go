package pubsub

import (
	"github.com/Billy-Davies-2/kokoloko-draft/internal/draft"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
)

// Announcer turns draft events into pubsub events. Announcements are fire
// and forget: a failed publish is logged and dropped.
type Announcer struct {
	pub Publisher
}

func NewAnnouncer(pub Publisher) *Announcer {
	return &Announcer{pub: pub}
}

func (a *Announcer) Announce(e draft.Event) {
	ev, err := NewEvent(string(e.Type), e.DraftID, e)
	if err != nil {
		logger.Error("Failed to encode draft event", "type", e.Type, "error", err)
		return
	}
	if err := a.pub.Publish(ev); err != nil {
		logger.Warn("Draft announcement dropped", "type", e.Type, "draft_id", e.DraftID, "error", err)
	}
}
