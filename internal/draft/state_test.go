package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

func TestNewStateValidation(t *testing.T) {
	_, err := NewState("d", nil, testRules(10, 10), models.ModeInteractive)
	assert.ErrorIs(t, err, ErrNoParticipants)

	dup := []models.Participant{{ID: "a"}, {ID: "a"}}
	_, err = NewState("d", dup, testRules(10, 10), models.ModeInteractive)
	assert.Error(t, err)

	s, err := NewState("d", players(2), testRules(10, 10), models.ModeAutoPublic)
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.True(t, snap.Active)
	assert.Equal(t, 1, snap.Round)
	assert.Equal(t, models.ModeAutoPublic, snap.Mode)
	assert.Empty(t, snap.Rosters["p1"])
}

func TestCommitIsAtomic(t *testing.T) {
	rules := testRules(2, 10)
	s, err := NewState("d", players(2), rules, models.ModeInteractive)
	require.NoError(t, err)

	require.NoError(t, s.Commit("p1", models.Item{Name: "Mew", Tier: 300}))
	require.Error(t, s.Commit("p2", models.Item{Name: "Mew", Tier: 300}), "duplicate name")
	require.Error(t, s.Commit("p1", models.Item{Name: "Mewtwo", Tier: 1000}), "over budget")
	require.ErrorIs(t, s.Commit("ghost", models.Item{Name: "Eevee", Tier: 20}), ErrUnknownPlayer)

	require.NoError(t, s.Commit("p1", models.Item{Name: "Eevee", Tier: 20}))
	require.Error(t, s.Commit("p1", models.Item{Name: "Pidgey", Tier: 20}), "roster full")

	snap := s.Snapshot()
	assert.Equal(t, 320, snap.Points["p1"])
	assert.Equal(t, 0, snap.Points["p2"])
	assert.Empty(t, snap.Rosters["p2"])
	requireLedgerConsistent(t, snap, rules)
}

func TestRerollBurnsAndCaps(t *testing.T) {
	rules := testRules(10, 2)
	s, err := NewState("d", players(1), rules, models.ModeInteractive)
	require.NoError(t, err)

	require.NoError(t, s.Reroll("p1", "Rattata"))
	require.NoError(t, s.Reroll("p1", "Zubat"))
	assert.Error(t, s.Reroll("p1", "Geodude"))

	_, ok := s.BurnedSet()["Zubat"]
	assert.True(t, ok)
	_, _, used := s.View("p1")
	assert.Equal(t, 2, used)

	s.ClearBurned()
	assert.Empty(t, s.Snapshot().Burned)
}

func TestAdvanceRoundSnakes(t *testing.T) {
	ps := players(3)
	s, err := NewState("d", ps, testRules(10, 10), models.ModeInteractive)
	require.NoError(t, err)

	for i := 1; i <= 6; i++ {
		s.AdvanceRound()
		order := s.Snapshot().Order
		if i%2 == 0 {
			assert.Equal(t, ps, order)
		} else {
			assert.Equal(t, []models.Participant{ps[2], ps[1], ps[0]}, order)
		}
	}
	assert.Equal(t, 7, s.Round())
	assert.Equal(t, 0, s.Snapshot().CurrentIndex)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s, err := NewState("d", players(1), testRules(10, 10), models.ModeInteractive)
	require.NoError(t, err)
	require.NoError(t, s.Commit("p1", models.Item{Name: "Onix", Tier: 100}))

	snap := s.Snapshot()
	snap.Rosters["p1"][0].Name = "changed"
	snap.Points["p1"] = 0
	snap.Order[0].ID = "changed"

	again := s.Snapshot()
	assert.Equal(t, "Onix", again.Rosters["p1"][0].Name)
	assert.Equal(t, 100, again.Points["p1"])
	assert.Equal(t, "p1", again.Order[0].ID)
}

func TestStandings(t *testing.T) {
	rules := testRules(10, 10)
	s, err := NewState("d", players(2), rules, models.ModeInteractive)
	require.NoError(t, err)
	require.NoError(t, s.Commit("p2", models.Item{Name: "Lapras", Tier: 180}))
	require.NoError(t, s.Reroll("p2", "Magikarp"))

	st := s.Standings()
	require.Len(t, st, 2)
	assert.Equal(t, "p1", st[0].Participant.ID)
	assert.Equal(t, 1020, st[1].PointsLeft)
	assert.Equal(t, 9, st[1].RerollsLeft)
	assert.Equal(t, []models.RosterEntry{{Name: "Lapras", Tier: 180}}, st[1].Roster)
}
