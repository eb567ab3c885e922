package draft

import (
	"slices"
	"testing"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// FuzzEligibleTiers checks that whatever the roster looks like, every
// offered tier keeps the remaining picks affordable and respects the caps.
func FuzzEligibleTiers(f *testing.F) {
	f.Add(uint64(0), 0, 0)
	f.Add(uint64(0x0102030405), 5, 300)
	f.Add(uint64(0xffffffffffff), 9, 1100)

	rules := DefaultRules()
	tiers := rules.Tiers()

	f.Fuzz(func(t *testing.T, rosterBits uint64, pickIndex, extraSpent int) {
		pickIndex = ((pickIndex%rules.TotalPicks)+rules.TotalPicks)%rules.TotalPicks + 1

		var roster []models.RosterEntry
		spent := 0
		for i := 0; i < pickIndex-1; i++ {
			tier := tiers[int(rosterBits>>(i*4)&0xf)%len(tiers)]
			roster = append(roster, models.RosterEntry{Name: "x", Tier: tier})
			spent += tier
		}
		if extraSpent > 0 {
			spent += extraSpent % rules.MaxPoints
		}

		eligible := EligibleTiers(rules, roster, spent, pickIndex)
		if !slices.IsSortedFunc(eligible, func(a, b int) int { return b - a }) {
			t.Fatalf("tiers not descending: %v", eligible)
		}

		affordable := AffordableNow(rules, spent, pickIndex)
		t1, t2, _ := rules.capTiers()
		heldTop := 0
		for _, e := range roster {
			if e.Tier == t1 || e.Tier == t2 {
				heldTop++
			}
		}
		for _, tier := range eligible {
			if tier > affordable {
				t.Fatalf("tier %d exceeds affordable %d", tier, affordable)
			}
			if !slices.Contains(tiers, tier) {
				t.Fatalf("tier %d is not configured", tier)
			}
		}
		pity := rules.PityPickIndex > 0 && pickIndex == rules.PityPickIndex
		if heldTop > 0 && !pity && (slices.Contains(eligible, t1) || slices.Contains(eligible, t2)) {
			t.Fatalf("top tiers offered with %d already held: %v", heldTop, eligible)
		}
	})
}
