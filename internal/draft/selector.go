package draft

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/catalog"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// Rand is the randomness the selector draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// NewSeededRand returns a deterministic source, mostly useful in tests
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Selector draws a tier by renormalized weight and then an item from it
type Selector struct {
	catalog *catalog.Catalog
	probs   map[int]float64
	rng     Rand
}

// NewSelector builds a selector over the catalog. A nil rng uses the
// process-wide source from math/rand/v2.
func NewSelector(c *catalog.Catalog, probs map[int]float64, rng Rand) *Selector {
	if rng == nil {
		rng = globalRand{}
	}
	return &Selector{catalog: c, probs: probs, rng: rng}
}

// Weights renormalizes the base probabilities over tiers so they sum to 1.
// Mass of tiers not listed is redistributed proportionally.
func (s *Selector) Weights(tiers []int) (map[int]float64, error) {
	if len(tiers) == 0 {
		return nil, ErrNoEligibleTiers
	}
	sum := 0.0
	for _, t := range tiers {
		sum += s.probs[t]
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: eligible tiers %v carry zero probability", ErrNoEligibleTiers, tiers)
	}

	weights := make(map[int]float64, len(tiers))
	for _, t := range tiers {
		weights[t] = s.probs[t] / sum
	}
	return weights, nil
}

// Roll draws one tier from tiers and one item of that tier that is neither
// burned this turn nor claimed by anyone in the draft.
func (s *Selector) Roll(tiers []int, burned, claimed map[string]struct{}) (models.Item, error) {
	tier, err := s.drawTier(tiers)
	if err != nil {
		return models.Item{}, err
	}

	pool := s.available(tier, burned, claimed)
	if len(pool) == 0 {
		return models.Item{}, fmt.Errorf("%w: tier %d", ErrNoCandidateInTier, tier)
	}
	return pool[s.rng.IntN(len(pool))], nil
}

func (s *Selector) drawTier(tiers []int) (int, error) {
	weights, err := s.Weights(tiers)
	if err != nil {
		return 0, err
	}

	r := s.rng.Float64()
	acc := 0.0
	last := 0
	for _, t := range tiers {
		w := weights[t]
		if w == 0 {
			continue
		}
		acc += w
		last = t
		if r < acc {
			return t, nil
		}
	}
	// float rounding can leave r just above the accumulated total
	return last, nil
}

func (s *Selector) available(tier int, exclude ...map[string]struct{}) []models.Item {
	items := s.catalog.ByTier(tier)
	return slices.DeleteFunc(items, func(it models.Item) bool {
		for _, set := range exclude {
			if _, ok := set[it.Name]; ok {
				return true
			}
		}
		return false
	})
}

// FakeCandidate picks an unclaimed item the participant cannot be offered
// right now, preferring tiers above the most expensive eligible one. It is
// only ever shown, never committed or burned.
func (s *Selector) FakeCandidate(eligible []int, claimed map[string]struct{}) (models.Item, bool) {
	ceiling := 0
	for _, t := range eligible {
		ceiling = max(ceiling, t)
	}

	var above, other []int
	for _, t := range s.catalog.Tiers() {
		switch {
		case t > ceiling:
			above = append(above, t)
		case !slices.Contains(eligible, t):
			other = append(other, t)
		}
	}

	for _, group := range [][]int{above, other} {
		var pool []models.Item
		for _, t := range group {
			pool = append(pool, s.available(t, claimed)...)
		}
		if len(pool) > 0 {
			return pool[s.rng.IntN(len(pool))], true
		}
	}
	return models.Item{}, false
}
