package draft

import "github.com/Billy-Davies-2/kokoloko-draft/internal/models"

// EligibleTiers computes the tiers a participant may be offered for the
// pick at pickIndex (1-based), most expensive first.
//
// The category cap looks at the three most expensive tiers T1 > T2 > T3:
// holding a T1, or two items from T2/T3 combined, blocks all three; one T2
// blocks T1 and T2; one T3 blocks T1. The budget rule then drops every tier
// that would leave less than MinTierCost per remaining pick. At the pity
// pick a participant without a T1 is offered exactly T1, provided it passes
// the budget rule.
func EligibleTiers(rules Rules, roster []models.RosterEntry, pointsSpent, pickIndex int) []int {
	t1, t2, t3 := rules.capTiers()

	var n1, n2, n3 int
	for _, e := range roster {
		switch e.Tier {
		case t1:
			n1++
		case t2:
			n2++
		case t3:
			n3++
		}
	}

	blocked := make(map[int]bool, 3)
	switch {
	case n1 > 0 || n2+n3 >= 2:
		blocked[t1], blocked[t2], blocked[t3] = true, true, true
	case n2 == 1:
		blocked[t1], blocked[t2] = true, true
	case n3 == 1:
		blocked[t1] = true
	}

	affordable := AffordableNow(rules, pointsSpent, pickIndex)

	if rules.PityPickIndex > 0 && pickIndex == rules.PityPickIndex && n1 == 0 && t1 <= affordable {
		return []int{t1}
	}

	tiers := rules.Tiers()
	eligible := make([]int, 0, len(tiers))
	for _, t := range tiers {
		if blocked[t] || t > affordable {
			continue
		}
		eligible = append(eligible, t)
	}
	return eligible
}

// AffordableNow is the most a participant may spend on the pick at
// pickIndex while keeping MinTierCost in reserve for every later pick.
func AffordableNow(rules Rules, pointsSpent, pickIndex int) int {
	remaining := rules.MaxPoints - pointsSpent
	reserve := (rules.TotalPicks - pickIndex) * rules.MinTierCost
	return remaining - reserve
}

// TierOdds is the renormalized chance of one tier, in percent
type TierOdds struct {
	Tier    int     `json:"tier"`
	Percent float64 `json:"percent"`
}

// OddsFor renormalizes the base table over the given tiers, keeping their order
func OddsFor(rules Rules, tiers []int) []TierOdds {
	sum := 0.0
	for _, t := range tiers {
		sum += rules.TierProbs[t]
	}
	if sum <= 0 {
		return nil
	}

	odds := make([]TierOdds, 0, len(tiers))
	for _, t := range tiers {
		odds = append(odds, TierOdds{Tier: t, Percent: rules.TierProbs[t] / sum * 100})
	}
	return odds
}
