package draft

import (
	"errors"
	"fmt"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
)

var (
	// ErrNoEligibleTiers means the eligibility computation came back empty
	ErrNoEligibleTiers = errors.New("no eligible tiers")
	// ErrNoCandidateInTier means the drawn tier has nothing left after exclusions
	ErrNoCandidateInTier = errors.New("no candidate left in tier")
	// ErrTransientTransport marks recoverable messaging failures; the
	// controller retries the current step with backoff.
	ErrTransientTransport = errors.New("transient transport error")
	// ErrUnexpected is the catch-all that halts the draft immediately
	ErrUnexpected = errors.New("unexpected failure")

	ErrDraftPaused    = errors.New("draft paused")
	ErrDraftInactive  = errors.New("draft is not active")
	ErrAlreadyRunning = errors.New("draft loop already running")
	ErrNoParticipants = errors.New("draft needs at least one participant")
	ErrBadParticipant = errors.New("invalid participant list")
	ErrUnknownPlayer  = errors.New("unknown participant")
)

// PickError ties a failed pick to the participant it was for
type PickError struct {
	Participant models.Participant
	PickIndex   int
	Err         error
}

func (e *PickError) Error() string {
	return fmt.Sprintf("pick #%d for %s: %v", e.PickIndex, e.Participant.DisplayName, e.Err)
}

func (e *PickError) Unwrap() error {
	return e.Err
}
