package draft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsSumToOne(t *testing.T) {
	rules := DefaultRules()
	s := NewSelector(testCatalog(t, rules.Tiers(), 1), rules.TierProbs, NewSeededRand(1))
	tiers := rules.Tiers()

	for start := 0; start < len(tiers); start++ {
		for end := start + 1; end <= len(tiers); end++ {
			w, err := s.Weights(tiers[start:end])
			require.NoError(t, err)
			total := 0.0
			for _, v := range w {
				total += v
			}
			assert.InDelta(t, 1.0, total, 1e-9, "tiers %v", tiers[start:end])
		}
	}
}

func TestWeightsErrors(t *testing.T) {
	probs := map[int]float64{100: 0, 50: 60, 20: 40}
	s := NewSelector(testCatalog(t, []int{100, 50, 20}, 1), probs, nil)

	_, err := s.Weights(nil)
	assert.ErrorIs(t, err, ErrNoEligibleTiers)

	_, err = s.Weights([]int{100})
	assert.ErrorIs(t, err, ErrNoEligibleTiers)
}

func TestRollExcludesBurnedAndClaimed(t *testing.T) {
	rules := DefaultRules()
	s := NewSelector(testCatalog(t, []int{20}, 3), rules.TierProbs, NewSeededRand(3))
	burned := map[string]struct{}{"mon-20-00": {}}
	claimed := map[string]struct{}{"mon-20-01": {}}

	for i := 0; i < 50; i++ {
		item, err := s.Roll([]int{20}, burned, claimed)
		require.NoError(t, err)
		assert.Equal(t, "mon-20-02", item.Name)
	}

	burned["mon-20-02"] = struct{}{}
	_, err := s.Roll([]int{20}, burned, claimed)
	assert.ErrorIs(t, err, ErrNoCandidateInTier)
}

func TestRollFollowsRenormalizedWeights(t *testing.T) {
	rules := DefaultRules()
	s := NewSelector(testCatalog(t, []int{300, 20}, 5), rules.TierProbs, NewSeededRand(99))

	const draws = 20000
	high := 0
	for i := 0; i < draws; i++ {
		item, err := s.Roll([]int{300, 20}, nil, nil)
		require.NoError(t, err)
		if item.Tier == 300 {
			high++
		}
	}
	// 0.5 / (0.5 + 2.0)
	assert.InDelta(t, 0.2, float64(high)/draws, 0.02)
}

func TestFakeCandidate(t *testing.T) {
	rules := DefaultRules()
	s := NewSelector(testCatalog(t, []int{300, 260, 20}, 2), rules.TierProbs, NewSeededRand(5))

	item, ok := s.FakeCandidate([]int{20}, nil)
	require.True(t, ok)
	assert.Greater(t, item.Tier, 20)

	claimed := map[string]struct{}{
		"mon-300-00": {}, "mon-300-01": {}, "mon-260-00": {}, "mon-260-01": {},
	}
	_, ok = s.FakeCandidate([]int{20}, claimed)
	assert.False(t, ok)
}
