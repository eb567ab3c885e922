package draft

import (
	"context"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// EventType names an announcement; it doubles as the pubsub event type
type EventType string

const (
	EventDraftStarted EventType = "draft:started"
	EventRound        EventType = "draft:round"
	EventTurn         EventType = "draft:turn"
	EventPick         EventType = "draft:pick"
	EventReroll       EventType = "draft:reroll"
	EventFakeOut      EventType = "draft:fakeout"
	EventModeChanged  EventType = "draft:mode"
	EventError        EventType = "draft:error"
	EventPaused       EventType = "draft:paused"
	EventResumed      EventType = "draft:resumed"
	EventComplete     EventType = "draft:complete"
)

// Pick triggers, recorded with every commit
const (
	TriggerKeep    = "keep"
	TriggerTimeout = "timeout"
	TriggerAuto    = "auto"
	TriggerForced  = "forced"
)

// Event is what the controller tells observers. Silent marks events raised
// in AUTO_SILENT mode; presentation layers should not show them.
type Event struct {
	Type        EventType            `json:"type"`
	DraftID     string               `json:"draftId"`
	Round       int                  `json:"round,omitempty"`
	PickIndex   int                  `json:"pickIndex,omitempty"`
	Participant *models.Participant  `json:"participant,omitempty"`
	Item        *models.RosterEntry  `json:"item,omitempty"`
	Trigger     string               `json:"trigger,omitempty"`
	ActorID     string               `json:"actorId,omitempty"`
	PointsLeft  int                  `json:"pointsLeft,omitempty"`
	RerollsLeft int                  `json:"rerollsLeft,omitempty"`
	RerollsUsed int                  `json:"rerollsUsed,omitempty"`
	Mode        *models.AutoMode     `json:"mode,omitempty"`
	Order       []models.Participant `json:"order,omitempty"`
	Standings   []Standing           `json:"standings,omitempty"`
	Message     string               `json:"message,omitempty"`
	Silent      bool                 `json:"silent,omitempty"`
}

// Announcer receives fire-and-forget notifications
type Announcer interface {
	Announce(Event)
}

// AnnouncerFunc adapts a plain function to Announcer
type AnnouncerFunc func(Event)

func (f AnnouncerFunc) Announce(e Event) { f(e) }

// PromptKind is the question a prompt asks
type PromptKind string

const (
	PromptRoll     PromptKind = "roll"
	PromptDecision PromptKind = "decision"
)

// Action is a participant's answer to a prompt
type Action string

const (
	ActionRoll   Action = "roll"
	ActionKeep   Action = "keep"
	ActionReroll Action = "reroll"
)

// Prompt asks the participant (or staff) to act on the current pick
type Prompt struct {
	Kind        PromptKind          `json:"kind"`
	DraftID     string              `json:"draftId"`
	Participant models.Participant  `json:"participant"`
	Round       int                 `json:"round"`
	PickIndex   int                 `json:"pickIndex"`
	Odds        []TierOdds          `json:"odds,omitempty"`
	Item        *models.RosterEntry `json:"item,omitempty"`
	PointsLeft  int                 `json:"pointsLeft"`
	RerollsLeft int                 `json:"rerollsLeft"`
}

// Decision resolves a prompt. A timeout is a decision too: the
// controller treats it as the default action for the prompt.
type Decision struct {
	Action   Action `json:"action"`
	ActorID  string `json:"actorId,omitempty"`
	TimedOut bool   `json:"timedOut"`
}

// Prompter blocks until the prompt is decided or times out. Transport
// failures should wrap ErrTransientTransport so the controller retries.
type Prompter interface {
	SendPrompt(ctx context.Context, p Prompt) (Decision, error)
}

// PrompterFunc adapts a plain function to Prompter
type PrompterFunc func(ctx context.Context, p Prompt) (Decision, error)

func (f PrompterFunc) SendPrompt(ctx context.Context, p Prompt) (Decision, error) {
	return f(ctx, p)
}
