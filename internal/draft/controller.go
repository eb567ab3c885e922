package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/catalog"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

type phase int

const (
	phaseStart phase = iota
	phaseRoundBoundary
	phaseTurnStart
	phaseAutoPick
	phaseRollPrompt
	phaseDecision
	phaseTurnEnd
	phaseComplete
)

var phaseNames = [...]string{"start", "round_boundary", "turn_start", "auto_pick", "roll_prompt", "decision", "turn_end", "complete"}

func (p phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Pacing holds the cosmetic delays between steps. Zero disables a delay.
type Pacing struct {
	Turn          time.Duration
	Round         time.Duration
	PublicPick    time.Duration
	SilentPick    time.Duration
	FakeOutReveal time.Duration
	FakeOutPause  time.Duration
}

// DefaultPacing is the delay set used by live drafts
func DefaultPacing() Pacing {
	return Pacing{
		Turn:          time.Second,
		Round:         time.Second,
		PublicPick:    500 * time.Millisecond,
		SilentPick:    10 * time.Millisecond,
		FakeOutReveal: 5 * time.Second,
		FakeOutPause:  2 * time.Second,
	}
}

// RetryPolicy bounds retries of transient transport failures
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryPolicy retries a failed step three times, five seconds apart
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Second}
}

// Options tune a Controller; the zero value of each field means default
type Options struct {
	Pacing *Pacing
	Retry  *RetryPolicy
	Rand   Rand
}

// turn is the progress of the pick in flight. It survives retries and pauses.
type turn struct {
	participant models.Participant
	pickIndex   int
	pending     *models.Item
}

// Controller drives one draft from its first round to completion
type Controller struct {
	state     *State
	rules     Rules
	selector  *Selector
	prompter  Prompter
	announcer Announcer
	rng       Rand
	pacing    Pacing
	retry     RetryPolicy
	log       *slog.Logger

	running atomic.Bool
	phase   phase
	turn    *turn

	sleep func(ctx context.Context, d time.Duration) error
}

// NewController wires a controller to its state and collaborators. The draft
// does not start until Run is called.
func NewController(state *State, cat *catalog.Catalog, prompter Prompter, announcer Announcer, opts Options) *Controller {
	rng := opts.Rand
	if rng == nil {
		rng = globalRand{}
	}
	pacing := DefaultPacing()
	if opts.Pacing != nil {
		pacing = *opts.Pacing
	}
	retry := DefaultRetryPolicy()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	if announcer == nil {
		announcer = AnnouncerFunc(func(Event) {})
	}

	rules := state.Rules()
	return &Controller{
		state:     state,
		rules:     rules,
		selector:  NewSelector(cat, rules.TierProbs, rng),
		prompter:  prompter,
		announcer: announcer,
		rng:       rng,
		pacing:    pacing,
		retry:     retry,
		log:       logger.With("draft_id", state.DraftID()),
		sleep:     sleepCtx,
	}
}

// State returns the draft being driven
func (c *Controller) State() *State {
	return c.state
}

// Selector returns the roller used for this draft
func (c *Controller) Selector() *Selector {
	return c.selector
}

// Running reports whether a Run call is in progress
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Run drives the draft until it completes or halts. A halt leaves the draft
// active and paused; the returned error wraps ErrDraftPaused and the cause.
// Calling Run again on a paused draft resumes it from where it stopped.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	if !c.state.Active() {
		return ErrDraftInactive
	}
	if c.state.Paused() {
		c.state.setPaused(false)
		c.log.Info("Draft resumed", "phase", c.phase)
		c.announce(Event{Type: EventResumed, Round: c.state.Round()})
	}

	retries := 0
	for c.phase != phaseComplete {
		next, err := c.safeStep(ctx)
		c.phase = next
		if err == nil {
			retries = 0
			continue
		}

		if errors.Is(err, ErrTransientTransport) && retries < c.retry.MaxRetries && ctx.Err() == nil {
			retries++
			c.log.Warn("Transport error, retrying step",
				"phase", c.phase, "attempt", retries, "max_retries", c.retry.MaxRetries, "error", err)
			if serr := c.sleep(ctx, c.retry.Backoff); serr != nil {
				return c.halt(serr)
			}
			continue
		}
		return c.halt(err)
	}
	return nil
}

// safeStep turns a panic inside a step into ErrUnexpected
func (c *Controller) safeStep(ctx context.Context) (next phase, err error) {
	current := c.phase
	defer func() {
		if r := recover(); r != nil {
			next = current
			err = fmt.Errorf("%w: panic in %s: %v", ErrUnexpected, current, r)
		}
	}()
	return c.step(ctx)
}

// step runs one phase and returns the phase to continue from. On failure
// the returned phase is the one to retry.
func (c *Controller) step(ctx context.Context) (phase, error) {
	switch c.phase {
	case phaseStart:
		return c.start()
	case phaseRoundBoundary:
		return c.roundBoundary(ctx)
	case phaseTurnStart:
		return c.turnStart()
	case phaseAutoPick:
		return c.autoPick(ctx)
	case phaseRollPrompt:
		return c.rollPrompt(ctx)
	case phaseDecision:
		return c.decide(ctx)
	case phaseTurnEnd:
		return c.turnEnd(ctx)
	}
	return c.phase, fmt.Errorf("%w: no handler for %s", ErrUnexpected, c.phase)
}

func (c *Controller) start() (phase, error) {
	snap := c.state.Snapshot()
	c.log.Info("Draft started", "participants", len(snap.Order), "mode", snap.Mode)
	c.announce(Event{
		Type:   EventDraftStarted,
		Round:  snap.Round,
		Order:  snap.Order,
		Mode:   &snap.Mode,
		Silent: snap.Mode == models.ModeAutoSilent,
	})
	return phaseRoundBoundary, nil
}

func (c *Controller) roundBoundary(ctx context.Context) (phase, error) {
	round, exhausted := c.state.position()
	if !exhausted {
		return phaseTurnStart, nil
	}

	if round >= c.rules.TotalPicks {
		c.state.Finish()
		c.log.Info("Draft complete", "rounds", round)
		c.announce(Event{Type: EventComplete, Round: round, Standings: c.state.Standings()})
		return phaseComplete, nil
	}

	round = c.state.AdvanceRound()
	c.log.Info("Round started", "round", round)
	if c.state.Mode() == models.ModeAutoSilent {
		return phaseTurnStart, nil
	}
	c.announce(Event{Type: EventRound, Round: round, Order: c.state.Snapshot().Order})
	return phaseTurnStart, c.sleep(ctx, c.pacing.Round)
}

func (c *Controller) turnStart() (phase, error) {
	p, pickIndex, ok := c.state.Current()
	if !ok {
		return phaseRoundBoundary, nil
	}
	if pickIndex > c.rules.TotalPicks {
		c.log.Warn("Participant roster already full, skipping", "participant", p.ID)
		c.state.AdvanceIndex()
		return phaseRoundBoundary, nil
	}

	c.state.ClearBurned()
	c.turn = &turn{participant: p, pickIndex: pickIndex}

	_, spent, used := c.state.View(p.ID)
	mode := c.state.Mode()
	c.log.Info("Turn start", "participant", p.ID, "pick", pickIndex, "mode", mode)

	if mode != models.ModeAutoSilent {
		c.announce(Event{
			Type:        EventTurn,
			Round:       c.state.Round(),
			PickIndex:   pickIndex,
			Participant: &p,
			PointsLeft:  c.rules.MaxPoints - spent,
			RerollsLeft: c.rules.MaxRerolls - used,
		})
	}

	switch {
	case mode != models.ModeInteractive:
		return phaseAutoPick, nil
	case used < c.rules.MaxRerolls:
		return phaseRollPrompt, nil
	default:
		return phaseDecision, nil
	}
}

func (c *Controller) autoPick(ctx context.Context) (phase, error) {
	t := c.turn
	item, err := c.roll(t)
	if err != nil {
		return phaseAutoPick, err
	}
	if err := c.commit(t, item, TriggerAuto, ""); err != nil {
		return phaseAutoPick, err
	}

	delay := c.pacing.PublicPick
	if c.state.Mode() == models.ModeAutoSilent {
		delay = c.pacing.SilentPick
	}
	return phaseTurnEnd, c.sleep(ctx, delay)
}

func (c *Controller) rollPrompt(ctx context.Context) (phase, error) {
	t := c.turn
	roster, spent, used := c.state.View(t.participant.ID)
	tiers := EligibleTiers(c.rules, roster, spent, t.pickIndex)

	d, err := c.prompter.SendPrompt(ctx, Prompt{
		Kind:        PromptRoll,
		DraftID:     c.state.DraftID(),
		Participant: t.participant,
		Round:       c.state.Round(),
		PickIndex:   t.pickIndex,
		Odds:        OddsFor(c.rules, tiers),
		PointsLeft:  c.rules.MaxPoints - spent,
		RerollsLeft: c.rules.MaxRerolls - used,
	})
	if err != nil {
		return phaseRollPrompt, err
	}

	if d.TimedOut {
		c.log.Info("Roll prompt timed out, auto-rolling", "participant", t.participant.ID)
	} else {
		c.log.Info("Roll requested", "participant", t.participant.ID, "actor", d.ActorID)
	}
	return phaseDecision, nil
}

func (c *Controller) decide(ctx context.Context) (phase, error) {
	t := c.turn
	if t.pending == nil {
		item, err := c.roll(t)
		if err != nil {
			return phaseDecision, err
		}
		t.pending = &item
	}
	item := *t.pending

	_, spent, used := c.state.View(t.participant.ID)
	left := c.rules.MaxRerolls - used
	if left <= 0 {
		if err := c.commit(t, item, TriggerForced, ""); err != nil {
			return phaseDecision, err
		}
		return phaseTurnEnd, nil
	}

	d, err := c.prompter.SendPrompt(ctx, Prompt{
		Kind:        PromptDecision,
		DraftID:     c.state.DraftID(),
		Participant: t.participant,
		Round:       c.state.Round(),
		PickIndex:   t.pickIndex,
		Item:        &models.RosterEntry{Name: item.Name, Tier: item.Tier},
		PointsLeft:  c.rules.MaxPoints - spent,
		RerollsLeft: left,
	})
	if err != nil {
		return phaseDecision, err
	}

	if d.Action == ActionReroll && !d.TimedOut {
		return c.reroll(ctx, t, item, d.ActorID)
	}

	trigger := TriggerKeep
	if d.TimedOut {
		trigger = TriggerTimeout
	}
	if err := c.commit(t, item, trigger, d.ActorID); err != nil {
		return phaseDecision, err
	}
	return phaseTurnEnd, nil
}

func (c *Controller) reroll(ctx context.Context, t *turn, item models.Item, actorID string) (phase, error) {
	if err := c.state.Reroll(t.participant.ID, item.Name); err != nil {
		return phaseDecision, &PickError{Participant: t.participant, PickIndex: t.pickIndex, Err: fmt.Errorf("%w: %v", ErrUnexpected, err)}
	}
	t.pending = nil

	_, _, used := c.state.View(t.participant.ID)
	c.log.Info("Reroll", "participant", t.participant.ID, "burned", item.Name, "actor", actorID, "rerolls_used", used)
	c.announce(Event{
		Type:        EventReroll,
		Round:       c.state.Round(),
		PickIndex:   t.pickIndex,
		Participant: &t.participant,
		Item:        &models.RosterEntry{Name: item.Name, Tier: item.Tier},
		ActorID:     actorID,
		RerollsUsed: used,
		RerollsLeft: c.rules.MaxRerolls - used,
	})

	if t.pickIndex == c.rules.TotalPicks-1 && c.rng.Float64() < c.rules.FakeOutChance {
		return phaseDecision, c.fakeOut(ctx, t)
	}
	return phaseDecision, nil
}

// fakeOut shows an item the participant cannot have. Nothing in the
// ledger is touched.
func (c *Controller) fakeOut(ctx context.Context, t *turn) error {
	roster, spent, _ := c.state.View(t.participant.ID)
	tiers := EligibleTiers(c.rules, roster, spent, t.pickIndex)
	fake, ok := c.selector.FakeCandidate(tiers, c.state.Claimed())
	if !ok {
		return nil
	}

	c.log.Info("Fake-out triggered", "participant", t.participant.ID, "shown", fake.Name)
	shown := &models.RosterEntry{Name: fake.Name, Tier: fake.Tier}
	steps := []struct {
		msg   string
		delay time.Duration
	}{
		{"reveal", c.pacing.FakeOutReveal},
		{"Fake Out! You don't have enough points for that!", c.pacing.FakeOutPause},
		{"Just kidding, here is your real pull", 0},
	}
	for _, s := range steps {
		c.announce(Event{
			Type:        EventFakeOut,
			Round:       c.state.Round(),
			PickIndex:   t.pickIndex,
			Participant: &t.participant,
			Item:        shown,
			Message:     s.msg,
		})
		if err := c.sleep(ctx, s.delay); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) turnEnd(ctx context.Context) (phase, error) {
	c.state.AdvanceIndex()
	c.turn = nil
	if c.state.Mode() == models.ModeAutoSilent {
		return phaseRoundBoundary, nil
	}
	return phaseRoundBoundary, c.sleep(ctx, c.pacing.Turn)
}

// roll computes eligibility for the turn and draws one candidate
func (c *Controller) roll(t *turn) (models.Item, error) {
	roster, spent, _ := c.state.View(t.participant.ID)
	tiers := EligibleTiers(c.rules, roster, spent, t.pickIndex)
	if len(tiers) == 0 {
		return models.Item{}, &PickError{Participant: t.participant, PickIndex: t.pickIndex, Err: ErrNoEligibleTiers}
	}

	item, err := c.selector.Roll(tiers, c.state.BurnedSet(), c.state.Claimed())
	if err != nil {
		return models.Item{}, &PickError{Participant: t.participant, PickIndex: t.pickIndex, Err: err}
	}
	c.log.Debug("Rolled", "participant", t.participant.ID, "pick", t.pickIndex, "tiers", tiers, "item", item.Name, "tier", item.Tier)
	return item, nil
}

func (c *Controller) commit(t *turn, item models.Item, trigger, actorID string) error {
	if err := c.state.Commit(t.participant.ID, item); err != nil {
		return &PickError{Participant: t.participant, PickIndex: t.pickIndex, Err: fmt.Errorf("%w: %v", ErrUnexpected, err)}
	}
	t.pending = nil

	_, spent, used := c.state.View(t.participant.ID)
	c.log.Info("Pick committed",
		"participant", t.participant.ID, "pick", t.pickIndex, "item", item.Name, "tier", item.Tier,
		"trigger", trigger, "points_spent", spent)
	c.announce(Event{
		Type:        EventPick,
		Round:       c.state.Round(),
		PickIndex:   t.pickIndex,
		Participant: &t.participant,
		Item:        &models.RosterEntry{Name: item.Name, Tier: item.Tier},
		Trigger:     trigger,
		ActorID:     actorID,
		PointsLeft:  c.rules.MaxPoints - spent,
		RerollsUsed: used,
		RerollsLeft: c.rules.MaxRerolls - used,
		Silent:      c.state.Mode() == models.ModeAutoSilent,
	})
	return nil
}

// halt pauses the draft and tells observers why
func (c *Controller) halt(cause error) error {
	c.state.setPaused(true)
	c.log.Error("Draft halted", "phase", c.phase, "error", cause)

	var pe *PickError
	if errors.As(cause, &pe) {
		p := pe.Participant
		c.announce(Event{
			Type:        EventError,
			Round:       c.state.Round(),
			PickIndex:   pe.PickIndex,
			Participant: &p,
			Message:     fmt.Sprintf("No valid pick could be made for %s.", p.DisplayName),
		})
	}

	ev := Event{
		Type:    EventPaused,
		Round:   c.state.Round(),
		Message: "Sorry, something went wrong. The draft is paused until staff resume it.",
	}
	if c.turn != nil {
		p := c.turn.participant
		ev.Participant = &p
		ev.PickIndex = c.turn.pickIndex
	}
	c.announce(ev)
	return fmt.Errorf("%w: %w", ErrDraftPaused, cause)
}

func (c *Controller) announce(e Event) {
	e.DraftID = c.state.DraftID()
	c.announcer.Announce(e)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
