package draft

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Rules is the configuration surface of a draft. A Rules value is copied
// into every draft at start and never changes while the draft runs.
type Rules struct {
	MaxPoints     int
	TotalPicks    int
	MaxRerolls    int
	MinTierCost   int
	TierProbs     map[int]float64 // tier -> percentage, sums to 100
	PityPickIndex int             // 0 disables the pity rule
	FakeOutChance float64
}

// DefaultTierProbs is the production probability table
func DefaultTierProbs() map[int]float64 {
	return map[int]float64{
		300: 0.50,
		260: 1.00,
		240: 1.50,
		220: 3.00,
		200: 7.50,
		180: 10.00,
		160: 12.25,
		140: 15.00,
		120: 15.00,
		100: 12.25,
		80:  10.00,
		60:  7.00,
		40:  3.00,
		20:  2.00,
	}
}

// DefaultRules returns the production rule set
func DefaultRules() Rules {
	return Rules{
		MaxPoints:     1200,
		TotalPicks:    10,
		MaxRerolls:    10,
		MinTierCost:   20,
		TierProbs:     DefaultTierProbs(),
		PityPickIndex: 5,
		FakeOutChance: 0.32,
	}
}

var ErrInvalidRules = errors.New("invalid draft rules")

// Validate checks the rule set for internal consistency
func (r Rules) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidRules, fmt.Sprintf(format, args...))
	}

	if r.MaxPoints <= 0 {
		return bad("MAX_POINTS must be positive, got %d", r.MaxPoints)
	}
	if r.TotalPicks <= 0 {
		return bad("TOTAL_PICKS must be positive, got %d", r.TotalPicks)
	}
	if r.MaxRerolls < 0 {
		return bad("MAX_REROLLS must not be negative, got %d", r.MaxRerolls)
	}
	if len(r.TierProbs) < 3 {
		return bad("need at least 3 tiers, got %d", len(r.TierProbs))
	}

	sum := 0.0
	for tier, p := range r.TierProbs {
		if tier <= 0 {
			return bad("tier %d must be positive", tier)
		}
		if p < 0 {
			return bad("tier %d has negative probability %v", tier, p)
		}
		sum += p
	}
	if math.Abs(sum-100) > 0.01 {
		return bad("tier probabilities sum to %.4f, want 100", sum)
	}

	tiers := r.Tiers()
	if cheapest := tiers[len(tiers)-1]; r.MinTierCost != cheapest {
		return bad("MIN_TIER_COST %d does not match cheapest tier %d", r.MinTierCost, cheapest)
	}
	if r.MinTierCost*r.TotalPicks > r.MaxPoints {
		return bad("MAX_POINTS %d cannot cover %d picks at %d", r.MaxPoints, r.TotalPicks, r.MinTierCost)
	}
	if r.PityPickIndex < 0 || r.PityPickIndex > r.TotalPicks {
		return bad("PITY_PICK_INDEX %d outside 0..%d", r.PityPickIndex, r.TotalPicks)
	}
	if r.FakeOutChance < 0 || r.FakeOutChance > 1 {
		return bad("FAKE_OUT_CHANCE %v outside 0..1", r.FakeOutChance)
	}
	return nil
}

// Tiers returns every configured tier, most expensive first
func (r Rules) Tiers() []int {
	tiers := make([]int, 0, len(r.TierProbs))
	for t := range r.TierProbs {
		tiers = append(tiers, t)
	}
	slices.SortFunc(tiers, func(a, b int) int { return b - a })
	return tiers
}

// capTiers returns T1, T2 and T3, the three most expensive tiers.
// Missing positions are 0, which no roster entry can match.
func (r Rules) capTiers() (t1, t2, t3 int) {
	tiers := r.Tiers()
	at := func(i int) int {
		if i < len(tiers) {
			return tiers[i]
		}
		return 0
	}
	return at(0), at(1), at(2)
}
