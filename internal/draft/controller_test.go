package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/catalog"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

func newController(t *testing.T, rules Rules, n int, mode models.AutoMode, p Prompter, cat *catalog.Catalog) (*Controller, *recorder) {
	t.Helper()
	if cat == nil {
		cat = testCatalog(t, rules.Tiers(), 30)
	}
	s, err := NewState("draft-test", players(n), rules, mode)
	require.NoError(t, err)
	rec := &recorder{}
	return NewController(s, cat, p, rec, noPacing()), rec
}

func TestSilentDraftRunsToCompletion(t *testing.T) {
	rules := testRules(10, 10)
	rules.PityPickIndex = 5
	c, rec := newController(t, rules, 2, models.ModeAutoSilent, &scripted{}, nil)

	require.NoError(t, c.Run(context.Background()))

	snap := c.State().Snapshot()
	assert.False(t, snap.Active)
	assert.False(t, snap.Paused)
	assert.Equal(t, rules.TotalPicks, snap.Round)
	for _, p := range players(2) {
		assert.Len(t, snap.Rosters[p.ID], 10)
	}
	requireLedgerConsistent(t, snap, rules)

	complete := rec.ofType(EventComplete)
	require.Len(t, complete, 1)
	assert.Len(t, complete[0].Standings, 2)
	assert.Empty(t, rec.ofType(EventRound), "silent mode announces no rounds")
	for _, e := range rec.ofType(EventPick) {
		assert.True(t, e.Silent)
		assert.Equal(t, TriggerAuto, e.Trigger)
	}
}

func TestPublicDraftManyParticipants(t *testing.T) {
	rules := testRules(10, 10)
	rules.PityPickIndex = 5
	c, rec := newController(t, rules, 16, models.ModeAutoPublic, &scripted{}, testCatalog(t, rules.Tiers(), 100))

	require.NoError(t, c.Run(context.Background()))

	snap := c.State().Snapshot()
	assert.False(t, snap.Active)
	requireLedgerConsistent(t, snap, rules)
	assert.Len(t, rec.ofType(EventPick), 160)
	assert.Len(t, rec.ofType(EventRound), 9)
}

func TestSnakeOrder(t *testing.T) {
	rules := testRules(4, 0)
	c, rec := newController(t, rules, 3, models.ModeAutoPublic, &scripted{}, nil)
	require.NoError(t, c.Run(context.Background()))

	var got []string
	for _, e := range rec.ofType(EventPick) {
		got = append(got, e.Participant.ID)
	}
	want := []string{
		"p1", "p2", "p3",
		"p3", "p2", "p1",
		"p1", "p2", "p3",
		"p3", "p2", "p1",
	}
	assert.Equal(t, want, got)
}

func TestInteractiveKeepAndTimeout(t *testing.T) {
	rules := testRules(2, 5)
	p := &scripted{
		rolls:     []Decision{{Action: ActionRoll, ActorID: "p1"}},
		decisions: []Decision{{Action: ActionKeep, ActorID: "p1"}},
	}
	c, rec := newController(t, rules, 1, models.ModeInteractive, p, nil)

	require.NoError(t, c.Run(context.Background()))

	picks := rec.ofType(EventPick)
	require.Len(t, picks, 2)
	assert.Equal(t, TriggerKeep, picks[0].Trigger)
	assert.Equal(t, "p1", picks[0].ActorID)
	assert.Equal(t, TriggerTimeout, picks[1].Trigger)

	assert.Equal(t, 2, p.count(PromptRoll))
	assert.Equal(t, 2, p.count(PromptDecision))
	for _, pr := range p.prompts {
		if pr.Kind == PromptRoll {
			assert.NotEmpty(t, pr.Odds)
		} else {
			require.NotNil(t, pr.Item)
		}
	}
}

func TestRerollBurnsItem(t *testing.T) {
	rules := testRules(1, 5)
	p := &scripted{decisions: []Decision{
		{Action: ActionReroll, ActorID: "p1"},
		{Action: ActionKeep, ActorID: "p1"},
	}}
	c, rec := newController(t, rules, 1, models.ModeInteractive, p, nil)
	require.NoError(t, c.Run(context.Background()))

	rerolls := rec.ofType(EventReroll)
	require.Len(t, rerolls, 1)
	burned := rerolls[0].Item.Name
	assert.Equal(t, 4, rerolls[0].RerollsLeft)

	snap := c.State().Snapshot()
	require.Len(t, snap.Rosters["p1"], 1)
	assert.NotEqual(t, burned, snap.Rosters["p1"][0].Name)
	assert.Equal(t, 1, snap.Rerolls["p1"])

	// the second decision prompt offers a different item
	var offered []string
	for _, pr := range p.prompts {
		if pr.Kind == PromptDecision {
			offered = append(offered, pr.Item.Name)
		}
	}
	require.Len(t, offered, 2)
	assert.Equal(t, burned, offered[0])
	assert.NotEqual(t, burned, offered[1])
}

func TestRerollExhaustionForcesCommit(t *testing.T) {
	rules := testRules(1, 2)
	always := PrompterFunc(func(_ context.Context, pr Prompt) (Decision, error) {
		return Decision{Action: ActionReroll, ActorID: "p1"}, nil
	})
	counting := &countingPrompter{next: always}
	c, rec := newController(t, rules, 1, models.ModeInteractive, counting, nil)

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, 2, counting.decisions)
	picks := rec.ofType(EventPick)
	require.Len(t, picks, 1)
	assert.Equal(t, TriggerForced, picks[0].Trigger)
	assert.Equal(t, 2, c.State().Snapshot().Rerolls["p1"])
}

func TestNoRerollsLeftSkipsPrompts(t *testing.T) {
	rules := testRules(3, 0)
	p := &scripted{}
	c, rec := newController(t, rules, 2, models.ModeInteractive, p, nil)

	require.NoError(t, c.Run(context.Background()))
	assert.Empty(t, p.prompts)
	for _, e := range rec.ofType(EventPick) {
		assert.Equal(t, TriggerForced, e.Trigger)
	}
}

type countingPrompter struct {
	next      Prompter
	decisions int
}

func (c *countingPrompter) SendPrompt(ctx context.Context, p Prompt) (Decision, error) {
	if p.Kind == PromptDecision {
		c.decisions++
	}
	return c.next.SendPrompt(ctx, p)
}

func TestTransientErrorsAreRetried(t *testing.T) {
	rules := testRules(1, 3)
	failures := 2
	p := PrompterFunc(func(_ context.Context, pr Prompt) (Decision, error) {
		if failures > 0 {
			failures--
			return Decision{}, ErrTransientTransport
		}
		return Decision{TimedOut: true}, nil
	})
	c, _ := newController(t, rules, 1, models.ModeInteractive, p, nil)

	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, c.State().Snapshot().Rosters["p1"], 1)
}

func TestRetryExhaustionPausesThenResumes(t *testing.T) {
	rules := testRules(2, 3)
	var mu sync.Mutex
	broken := true
	attempts := 0
	p := PrompterFunc(func(_ context.Context, pr Prompt) (Decision, error) {
		mu.Lock()
		defer mu.Unlock()
		if broken {
			attempts++
			return Decision{}, errors.New("socket closed: " + ErrTransientTransport.Error())
		}
		return Decision{TimedOut: true}, nil
	})
	transient := PrompterFunc(func(ctx context.Context, pr Prompt) (Decision, error) {
		d, err := p.SendPrompt(ctx, pr)
		if err != nil {
			return d, errors.Join(ErrTransientTransport, err)
		}
		return d, nil
	})
	c, rec := newController(t, rules, 2, models.ModeInteractive, transient, nil)

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrDraftPaused)
	require.ErrorIs(t, err, ErrTransientTransport)
	assert.Equal(t, 4, attempts, "first try plus three retries")

	snap := c.State().Snapshot()
	assert.True(t, snap.Active)
	assert.True(t, snap.Paused)
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.Empty(t, snap.Rosters["p1"])
	require.Len(t, rec.ofType(EventPaused), 1)
	assert.Equal(t, "p1", rec.ofType(EventPaused)[0].Participant.ID)

	mu.Lock()
	broken = false
	mu.Unlock()

	require.NoError(t, c.Run(context.Background()))
	snap = c.State().Snapshot()
	assert.False(t, snap.Active)
	assert.Len(t, snap.Rosters["p1"], 2)
	assert.Len(t, snap.Rosters["p2"], 2)
	assert.Len(t, rec.ofType(EventResumed), 1)
}

func TestPendingRollSurvivesRetry(t *testing.T) {
	rules := testRules(1, 3)
	var offered []string
	failed := false
	p := PrompterFunc(func(_ context.Context, pr Prompt) (Decision, error) {
		if pr.Kind != PromptDecision {
			return Decision{TimedOut: true}, nil
		}
		offered = append(offered, pr.Item.Name)
		if !failed {
			failed = true
			return Decision{}, ErrTransientTransport
		}
		return Decision{Action: ActionKeep}, nil
	})
	c, _ := newController(t, rules, 1, models.ModeInteractive, p, nil)
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, offered, 2)
	assert.Equal(t, offered[0], offered[1])
	assert.Equal(t, offered[0], c.State().Snapshot().Rosters["p1"][0].Name)
}

func TestNoCandidatePausesWithoutAdvancing(t *testing.T) {
	rules := Rules{
		MaxPoints:   100,
		TotalPicks:  1,
		MaxRerolls:  0,
		MinTierCost: 20,
		TierProbs:   map[int]float64{100: 50, 50: 30, 20: 20},
	}
	require.NoError(t, rules.Validate())

	cat, err := catalog.New([]models.Item{{Name: "Caterpie", Tier: 20}})
	require.NoError(t, err)

	s, err := NewState("d", players(1), rules, models.ModeAutoPublic)
	require.NoError(t, err)
	rec := &recorder{}
	opts := noPacing()
	opts.Rand = fixedRand{}
	c := NewController(s, cat, &scripted{}, rec, opts)

	err = c.Run(context.Background())
	require.ErrorIs(t, err, ErrDraftPaused)
	require.ErrorIs(t, err, ErrNoCandidateInTier)

	var pe *PickError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "p1", pe.Participant.ID)
	assert.Equal(t, 1, pe.PickIndex)

	snap := s.Snapshot()
	assert.True(t, snap.Active)
	assert.True(t, snap.Paused)
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.Empty(t, snap.Rosters["p1"])

	errs := rec.ofType(EventError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Coach 1")
}

func TestFakeOutLeavesLedgerAlone(t *testing.T) {
	rules := testRules(2, 5)
	rules.MaxPoints = 200
	rules.FakeOutChance = 1
	p := &scripted{decisions: []Decision{
		{Action: ActionReroll, ActorID: "p1"},
		{Action: ActionKeep, ActorID: "p1"},
		{Action: ActionKeep, ActorID: "p1"},
	}}
	c, rec := newController(t, rules, 1, models.ModeInteractive, p, nil)

	require.NoError(t, c.Run(context.Background()))

	fakes := rec.ofType(EventFakeOut)
	require.Len(t, fakes, 3)
	shown := fakes[0].Item.Name

	snap := c.State().Snapshot()
	assert.Equal(t, 1, snap.Rerolls["p1"])
	for _, e := range snap.Rosters["p1"] {
		assert.NotEqual(t, shown, e.Name)
	}
	assert.NotContains(t, snap.Burned, shown)
	requireLedgerConsistent(t, snap, rules)
}

func TestPanicHaltsAsUnexpected(t *testing.T) {
	rules := testRules(1, 1)
	p := PrompterFunc(func(context.Context, Prompt) (Decision, error) {
		panic("boom")
	})
	c, rec := newController(t, rules, 1, models.ModeInteractive, p, nil)

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrUnexpected)
	require.ErrorIs(t, err, ErrDraftPaused)
	assert.True(t, c.State().Paused())
	assert.Len(t, rec.ofType(EventPaused), 1)
}

func TestRunRejectsConcurrentAndFinished(t *testing.T) {
	rules := testRules(1, 1)
	entered := make(chan struct{})
	release := make(chan struct{})
	p := PrompterFunc(func(ctx context.Context, pr Prompt) (Decision, error) {
		if pr.Kind == PromptRoll {
			close(entered)
			<-release
		}
		return Decision{TimedOut: true}, nil
	})
	c, _ := newController(t, rules, 1, models.ModeInteractive, p, nil)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	<-entered
	assert.True(t, c.Running())
	assert.ErrorIs(t, c.Run(context.Background()), ErrAlreadyRunning)
	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("draft did not finish")
	}
	assert.ErrorIs(t, c.Run(context.Background()), ErrDraftInactive)
}

func TestCancelledContextPauses(t *testing.T) {
	rules := testRules(2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	p := PrompterFunc(func(ctx context.Context, pr Prompt) (Decision, error) {
		cancel()
		<-ctx.Done()
		return Decision{}, ctx.Err()
	})
	c, _ := newController(t, rules, 1, models.ModeInteractive, p, nil)

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, c.State().Paused())
	assert.True(t, c.State().Active())
}

func TestModeSwitchTakesEffectNextTurn(t *testing.T) {
	rules := testRules(3, 2)
	var c *Controller
	p := PrompterFunc(func(_ context.Context, pr Prompt) (Decision, error) {
		c.State().SetMode(models.ModeAutoPublic)
		return Decision{TimedOut: true}, nil
	})
	c, rec := newController(t, rules, 1, models.ModeInteractive, p, nil)
	require.NoError(t, c.Run(context.Background()))

	picks := rec.ofType(EventPick)
	require.Len(t, picks, 3)
	assert.Equal(t, TriggerTimeout, picks[0].Trigger)
	assert.Equal(t, TriggerAuto, picks[1].Trigger)
	assert.Equal(t, TriggerAuto, picks[2].Trigger)
}
