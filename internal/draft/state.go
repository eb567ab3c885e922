package draft

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

// State is the ledger of one draft. The controller is its only writer;
// transports read it through Snapshot and Standings.
type State struct {
	mu sync.RWMutex

	draftID      string
	rules        Rules
	participants []models.Participant // join order, used for summaries
	active       bool
	paused       bool
	round        int
	order        []models.Participant
	currentIndex int
	rosters      map[string][]models.RosterEntry
	points       map[string]int
	rerolls      map[string]int
	burned       []string
	mode         models.AutoMode
}

// Snapshot is a deep copy of the ledger
type Snapshot struct {
	DraftID      string                          `json:"draftId"`
	Active       bool                            `json:"active"`
	Paused       bool                            `json:"paused"`
	Round        int                             `json:"round"`
	Order        []models.Participant            `json:"order"`
	CurrentIndex int                             `json:"currentIndex"`
	Rosters      map[string][]models.RosterEntry `json:"rosters"`
	Points       map[string]int                  `json:"points"`
	Rerolls      map[string]int                  `json:"rerolls"`
	Burned       []string                        `json:"burned"`
	Mode         models.AutoMode                 `json:"autoMode"`
}

// Standing is one participant's line in the draft summary
type Standing struct {
	Participant models.Participant   `json:"participant"`
	Roster      []models.RosterEntry `json:"roster"`
	PointsSpent int                  `json:"pointsSpent"`
	PointsLeft  int                  `json:"pointsLeft"`
	RerollsUsed int                  `json:"rerollsUsed"`
	RerollsLeft int                  `json:"rerollsLeft"`
}

// NewState initializes round 1 with the participants in the given order
func NewState(draftID string, participants []models.Participant, rules Rules, mode models.AutoMode) (*State, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	s := &State{
		draftID:      draftID,
		rules:        rules,
		participants: slices.Clone(participants),
		active:       true,
		round:        1,
		order:        slices.Clone(participants),
		rosters:      make(map[string][]models.RosterEntry, len(participants)),
		points:       make(map[string]int, len(participants)),
		rerolls:      make(map[string]int, len(participants)),
		mode:         mode,
	}
	for _, p := range participants {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: participant %q has no id", ErrBadParticipant, p.DisplayName)
		}
		if _, dup := s.rosters[p.ID]; dup {
			return nil, fmt.Errorf("%w: participant %s listed twice", ErrBadParticipant, p.ID)
		}
		s.rosters[p.ID] = []models.RosterEntry{}
		s.points[p.ID] = 0
		s.rerolls[p.ID] = 0
	}
	return s, nil
}

// DraftID identifies the draft
func (s *State) DraftID() string {
	return s.draftID
}

// Rules returns the rules fixed at creation
func (s *State) Rules() Rules {
	return s.rules
}

// Active is false once the last round is complete
func (s *State) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Paused reports whether the draft halted and awaits a resume
func (s *State) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Mode returns the current auto mode
func (s *State) Mode() models.AutoMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Round is the 1-based round in progress
func (s *State) Round() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// SetMode switches the auto mode; it takes effect at the next turn
func (s *State) SetMode(mode models.AutoMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

func (s *State) setPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
}

// Snapshot returns a deep copy safe to hand to observers
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rosters := make(map[string][]models.RosterEntry, len(s.rosters))
	for id, r := range s.rosters {
		rosters[id] = slices.Clone(r)
	}
	return Snapshot{
		DraftID:      s.draftID,
		Active:       s.active,
		Paused:       s.paused,
		Round:        s.round,
		Order:        slices.Clone(s.order),
		CurrentIndex: s.currentIndex,
		Rosters:      rosters,
		Points:       maps.Clone(s.points),
		Rerolls:      maps.Clone(s.rerolls),
		Burned:       slices.Clone(s.burned),
		Mode:         s.mode,
	}
}

// Standings summarizes every participant in join order
func (s *State) Standings() []Standing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Standing, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, Standing{
			Participant: p,
			Roster:      slices.Clone(s.rosters[p.ID]),
			PointsSpent: s.points[p.ID],
			PointsLeft:  s.rules.MaxPoints - s.points[p.ID],
			RerollsUsed: s.rerolls[p.ID],
			RerollsLeft: s.rules.MaxRerolls - s.rerolls[p.ID],
		})
	}
	return out
}

// View is the read-only slice of the ledger eligibility needs
func (s *State) View(participantID string) (roster []models.RosterEntry, pointsSpent, rerollsUsed int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rosters[participantID]), s.points[participantID], s.rerolls[participantID]
}

// Current returns whose turn it is and the 1-based pick they are about to make.
// ok is false once the round's order is exhausted.
func (s *State) Current() (p models.Participant, pickIndex int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentIndex >= len(s.order) {
		return models.Participant{}, 0, false
	}
	p = s.order[s.currentIndex]
	return p, len(s.rosters[p.ID]) + 1, true
}

// Claimed is the set of names committed to any roster
func (s *State) Claimed() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claimed := make(map[string]struct{})
	for _, r := range s.rosters {
		for _, e := range r {
			claimed[e.Name] = struct{}{}
		}
	}
	return claimed
}

// BurnedSet is the set of names rejected during the current pick
func (s *State) BurnedSet() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	burned := make(map[string]struct{}, len(s.burned))
	for _, n := range s.burned {
		burned[n] = struct{}{}
	}
	return burned
}

func (s *State) isClaimedLocked(name string) bool {
	for _, r := range s.rosters {
		for _, e := range r {
			if e.Name == name {
				return true
			}
		}
	}
	return false
}

// Commit appends item to the participant's roster and charges its tier.
// Every check runs before anything is written.
func (s *State) Commit(participantID string, item models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster, ok := s.rosters[participantID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, participantID)
	}
	if len(roster) >= s.rules.TotalPicks {
		return fmt.Errorf("%s already holds %d picks", participantID, len(roster))
	}
	if s.isClaimedLocked(item.Name) {
		return fmt.Errorf("%s is already drafted", item.Name)
	}
	if s.points[participantID]+item.Tier > s.rules.MaxPoints {
		return fmt.Errorf("%s cannot afford %s (%d)", participantID, item.Name, item.Tier)
	}

	s.rosters[participantID] = append(roster, models.RosterEntry{Name: item.Name, Tier: item.Tier})
	s.points[participantID] += item.Tier
	s.burned = slices.DeleteFunc(s.burned, func(n string) bool { return n == item.Name })
	return nil
}

// Reroll spends one reroll and burns the rejected item for the rest of the pick
func (s *State) Reroll(participantID, rejected string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, ok := s.rerolls[participantID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, participantID)
	}
	if used >= s.rules.MaxRerolls {
		return fmt.Errorf("%s has no rerolls left", participantID)
	}
	if s.isClaimedLocked(rejected) {
		return fmt.Errorf("%s is already drafted and cannot be burned", rejected)
	}

	s.rerolls[participantID] = used + 1
	if !slices.Contains(s.burned, rejected) {
		s.burned = append(s.burned, rejected)
	}
	return nil
}

// ClearBurned forgets the items rejected during the previous pick
func (s *State) ClearBurned() {
	s.mu.Lock()
	s.burned = nil
	s.mu.Unlock()
}

// AdvanceIndex hands the turn to the next participant in the round
func (s *State) AdvanceIndex() {
	s.mu.Lock()
	s.currentIndex++
	s.mu.Unlock()
}

// AdvanceRound moves to the next round and reverses the turn order
func (s *State) AdvanceRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round++
	slices.Reverse(s.order)
	s.currentIndex = 0
	return s.round
}

// position reports the round and whether the current round's order is exhausted
func (s *State) position() (round int, exhausted bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round, s.currentIndex >= len(s.order)
}

// Finish marks the draft complete
func (s *State) Finish() {
	s.mu.Lock()
	s.active = false
	s.paused = false
	s.mu.Unlock()
}
