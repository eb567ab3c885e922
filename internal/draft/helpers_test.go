package draft

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/catalog"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

func testRules(totalPicks, maxRerolls int) Rules {
	r := DefaultRules()
	r.TotalPicks = totalPicks
	r.MaxRerolls = maxRerolls
	r.PityPickIndex = 0
	r.FakeOutChance = 0
	return r
}

func testCatalog(t *testing.T, tiers []int, perTier int) *catalog.Catalog {
	t.Helper()
	var items []models.Item
	for _, tier := range tiers {
		for i := 0; i < perTier; i++ {
			items = append(items, models.Item{Name: fmt.Sprintf("mon-%d-%02d", tier, i), Tier: tier})
		}
	}
	c, err := catalog.New(items)
	require.NoError(t, err)
	return c
}

func players(n int) []models.Participant {
	ps := make([]models.Participant, n)
	for i := range ps {
		ps[i] = models.Participant{ID: fmt.Sprintf("p%d", i+1), DisplayName: fmt.Sprintf("Coach %d", i+1)}
	}
	return ps
}

func noPacing() Options {
	return Options{
		Pacing: &Pacing{},
		Retry:  &RetryPolicy{MaxRetries: 3},
		Rand:   NewSeededRand(42),
	}
}

// fixedRand always draws the first weighted tier and the first pool item
type fixedRand struct{}

func (fixedRand) Float64() float64 { return 0 }
func (fixedRand) IntN(int) int     { return 0 }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Announce(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// scripted answers prompts from per-kind queues; an empty queue times out
type scripted struct {
	mu        sync.Mutex
	rolls     []Decision
	decisions []Decision
	prompts   []Prompt
}

func (s *scripted) SendPrompt(_ context.Context, p Prompt) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)

	queue := &s.rolls
	if p.Kind == PromptDecision {
		queue = &s.decisions
	}
	if len(*queue) == 0 {
		return Decision{TimedOut: true}, nil
	}
	d := (*queue)[0]
	*queue = (*queue)[1:]
	return d, nil
}

func (s *scripted) count(kind PromptKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

func requireLedgerConsistent(t *testing.T, snap Snapshot, rules Rules) {
	t.Helper()
	seen := map[string]string{}
	for id, roster := range snap.Rosters {
		sum := 0
		for _, e := range roster {
			sum += e.Tier
			owner, dup := seen[e.Name]
			require.False(t, dup, "%s drafted by both %s and %s", e.Name, owner, id)
			seen[e.Name] = id
		}
		require.Equal(t, sum, snap.Points[id], "points for %s", id)
		require.LessOrEqual(t, len(roster), rules.TotalPicks)
		require.LessOrEqual(t, snap.Points[id], rules.MaxPoints)
		require.LessOrEqual(t, snap.Rerolls[id], rules.MaxRerolls)
	}
	for _, b := range snap.Burned {
		_, claimed := seen[b]
		require.False(t, claimed, "burned item %s is on a roster", b)
	}
}
