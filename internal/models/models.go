package models

import "time"

// AutoMode controls whether picks pause for human decisions
type AutoMode int

const (
	ModeInteractive AutoMode = iota
	ModeAutoPublic
	ModeAutoSilent
)

var modeNames = [...]string{"interactive", "auto_public", "auto_silent"}

func (m AutoMode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// Next cycles INTERACTIVE -> AUTO_PUBLIC -> AUTO_SILENT -> INTERACTIVE
func (m AutoMode) Next() AutoMode {
	return (m + 1) % AutoMode(len(modeNames))
}

// ParseAutoMode accepts the names returned by String plus a few short aliases
func ParseAutoMode(s string) (AutoMode, bool) {
	switch s {
	case "interactive", "0", "":
		return ModeInteractive, true
	case "auto_public", "public", "1":
		return ModeAutoPublic, true
	case "auto_silent", "silent", "2":
		return ModeAutoSilent, true
	}
	return ModeInteractive, false
}

func (m AutoMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *AutoMode) UnmarshalText(b []byte) error {
	mode, ok := ParseAutoMode(string(b))
	if !ok {
		return &UnknownModeError{Value: string(b)}
	}
	*m = mode
	return nil
}

// UnknownModeError is returned when a mode name cannot be parsed
type UnknownModeError struct {
	Value string
}

func (e *UnknownModeError) Error() string {
	return "unknown auto mode: " + e.Value
}

// Item is a single draftable entry of the catalog
type Item struct {
	Name   string `json:"name"`
	Tier   int    `json:"tier"`
	IsMega bool   `json:"isMega"`
}

// Participant is a drafting coach. Identity is owned by the caller.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// RosterEntry is a committed pick
type RosterEntry struct {
	Name string `json:"name"`
	Tier int    `json:"tier"`
}

// PickRecord is one line of the pick history log
type PickRecord struct {
	DraftID         string    `json:"draftId"`
	Round           int       `json:"round"`
	PickIndex       int       `json:"pickIndex"`
	ParticipantID   string    `json:"participantId"`
	ParticipantName string    `json:"participantName"`
	Item            string    `json:"item"`
	Tier            int       `json:"tier"`
	Trigger         string    `json:"trigger"`
	RerollsUsed     int       `json:"rerollsUsed"`
	PickedAt        time.Time `json:"pickedAt"`
}
