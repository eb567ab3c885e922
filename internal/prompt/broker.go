package prompt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/auth"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/draft"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/pubsub"
)

// EventPrompt is published whenever a participant is asked to act
const EventPrompt = "draft:prompt"

var (
	ErrNoPendingPrompt = errors.New("no prompt is waiting for a decision")
	ErrInvalidAction   = errors.New("action does not answer the pending prompt")
	ErrNotAuthorized   = errors.New("actor may not act for this participant")
	ErrRateLimited     = errors.New("too many actions, slow down")
)

type Options struct {
	RollTimeout     time.Duration
	DecisionTimeout time.Duration
	// Rate and Burst limit how often one actor may submit actions
	Rate  rate.Limit
	Burst int
}

func DefaultOptions() Options {
	return Options{
		RollTimeout:     60 * time.Second,
		DecisionTimeout: 60 * time.Second,
		Rate:            rate.Every(250 * time.Millisecond),
		Burst:           4,
	}
}

type pending struct {
	prompt draft.Prompt
	ch     chan draft.Decision
}

// Broker publishes prompts and parks the controller until an authorized
// actor decides or the prompt times out. One prompt per draft at a time.
type Broker struct {
	pub   pubsub.Publisher
	authz auth.Authorizer
	opts  Options

	mu       sync.Mutex
	pending  map[string]*pending
	limiters map[string]*rate.Limiter
}

func NewBroker(pub pubsub.Publisher, authz auth.Authorizer, opts Options) *Broker {
	return &Broker{
		pub:      pub,
		authz:    authz,
		opts:     opts,
		pending:  make(map[string]*pending),
		limiters: make(map[string]*rate.Limiter),
	}
}

// SendPrompt implements draft.Prompter
func (b *Broker) SendPrompt(ctx context.Context, p draft.Prompt) (draft.Decision, error) {
	pd := &pending{prompt: p, ch: make(chan draft.Decision, 1)}
	b.mu.Lock()
	b.pending[p.DraftID] = pd
	b.mu.Unlock()
	defer b.release(p.DraftID, pd)

	ev, err := pubsub.NewEvent(EventPrompt, p.DraftID, p)
	if err != nil {
		return draft.Decision{}, err
	}
	if err := b.pub.Publish(ev); err != nil {
		return draft.Decision{}, fmt.Errorf("%w: %v", draft.ErrTransientTransport, err)
	}

	timeout, fallback := b.opts.RollTimeout, draft.ActionRoll
	if p.Kind == draft.PromptDecision {
		timeout, fallback = b.opts.DecisionTimeout, draft.ActionKeep
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-pd.ch:
		return d, nil
	case <-timer.C:
		logger.Info("Prompt timed out", "draft_id", p.DraftID, "kind", p.Kind, "participant", p.Participant.ID)
		return draft.Decision{Action: fallback, TimedOut: true}, nil
	case <-ctx.Done():
		return draft.Decision{}, ctx.Err()
	}
}

func (b *Broker) release(draftID string, pd *pending) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[draftID] == pd {
		delete(b.pending, draftID)
	}
}

// Pending returns the prompt currently waiting in draftID
func (b *Broker) Pending(draftID string) (draft.Prompt, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pd, ok := b.pending[draftID]
	if !ok {
		return draft.Prompt{}, false
	}
	return pd.prompt, true
}

// Decide answers the pending prompt of draftID on behalf of actorID
func (b *Broker) Decide(ctx context.Context, draftID, actorID string, action draft.Action) error {
	if !b.limiter(actorID).Allow() {
		return ErrRateLimited
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pd, ok := b.pending[draftID]
	if !ok {
		return ErrNoPendingPrompt
	}
	if !answers(pd.prompt.Kind, action) {
		return fmt.Errorf("%w: %s for %s prompt", ErrInvalidAction, action, pd.prompt.Kind)
	}
	if !b.authz.IsAuthorized(ctx, actorID, pd.prompt.Participant.ID) {
		logger.Warn("Unauthorized draft action", "draft_id", draftID, "actor", actorID, "participant", pd.prompt.Participant.ID)
		return ErrNotAuthorized
	}

	select {
	case pd.ch <- draft.Decision{Action: action, ActorID: actorID}:
		delete(b.pending, draftID)
		return nil
	default:
		return ErrNoPendingPrompt
	}
}

func (b *Broker) limiter(actorID string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[actorID]
	if !ok {
		l = rate.NewLimiter(b.opts.Rate, b.opts.Burst)
		b.limiters[actorID] = l
	}
	return l
}

func answers(kind draft.PromptKind, action draft.Action) bool {
	switch kind {
	case draft.PromptRoll:
		return action == draft.ActionRoll
	case draft.PromptDecision:
		return action == draft.ActionKeep || action == draft.ActionReroll
	}
	return false
}
