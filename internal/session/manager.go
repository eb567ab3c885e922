package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/auth"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/catalog"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/dal"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/draft"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/prompt"
)

var (
	ErrNotFound    = errors.New("draft not found")
	ErrDraftExists = errors.New("draft already exists")
	ErrNotPaused   = errors.New("draft is not paused")
	ErrForbidden   = errors.New("only staff may do that")
)

const (
	dummyIDBase = 9000
	maxDummies  = 64
)

// Config is what every draft hosted by a Manager shares
type Config struct {
	Rules  draft.Rules
	Pacing draft.Pacing
	Retry  draft.RetryPolicy
	// Mode applies to drafts started without one
	Mode models.AutoMode
	// Seed makes rolls reproducible when non-zero
	Seed uint64
}

// StartRequest describes a new draft. Dummies appends that many bot
// participants. A nil Mode falls back to Config.Mode.
type StartRequest struct {
	DraftID      string               `json:"draftId,omitempty"`
	Participants []models.Participant `json:"participants"`
	Mode         *models.AutoMode     `json:"mode,omitempty"`
	Dummies      int                  `json:"dummies,omitempty"`
}

// Odds is the tier grid shown to the participant on the clock
type Odds struct {
	Participant models.Participant `json:"participant"`
	PickIndex   int                `json:"pickIndex"`
	Tiers       []draft.TierOdds   `json:"tiers"`
}

type entry struct {
	ctrl    *draft.Controller
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

// Manager hosts concurrent drafts, one controller goroutine each
type Manager struct {
	store     dal.DraftDAL
	broker    *prompt.Broker
	announcer draft.Announcer
	authz     auth.Authorizer
	cfg       Config

	ctx context.Context
	wg  sync.WaitGroup

	mu     sync.RWMutex
	drafts map[string]*entry
}

// NewManager creates a manager whose drafts stop when ctx is cancelled
func NewManager(ctx context.Context, store dal.DraftDAL, broker *prompt.Broker, announcer draft.Announcer, authz auth.Authorizer, cfg Config) *Manager {
	return &Manager{
		store:     store,
		broker:    broker,
		announcer: announcer,
		authz:     authz,
		cfg:       cfg,
		ctx:       ctx,
		drafts:    make(map[string]*entry),
	}
}

// Dummies returns n bot participants
func Dummies(n int) []models.Participant {
	out := make([]models.Participant, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Participant{
			ID:          strconv.Itoa(dummyIDBase + i),
			DisplayName: fmt.Sprintf("Bot_%d", i),
		})
	}
	return out
}

// Start loads the catalog, builds the draft and launches its controller. Staff only.
func (m *Manager) Start(ctx context.Context, actorID string, req StartRequest) (draft.Snapshot, error) {
	if !auth.IsStaffActor(ctx, m.authz, actorID) {
		return draft.Snapshot{}, ErrForbidden
	}
	if req.Dummies < 0 || req.Dummies > maxDummies {
		return draft.Snapshot{}, fmt.Errorf("%w: dummies must be within 0..%d", draft.ErrBadParticipant, maxDummies)
	}
	if req.DraftID == "" {
		req.DraftID = uuid.NewString()
	}
	participants := append(slices.Clone(req.Participants), Dummies(req.Dummies)...)

	items, err := m.store.LoadCatalog()
	if err != nil {
		return draft.Snapshot{}, fmt.Errorf("load catalog: %w", err)
	}
	cat, err := catalog.New(items)
	if err != nil {
		return draft.Snapshot{}, fmt.Errorf("build catalog: %w", err)
	}
	mode := m.cfg.Mode
	if req.Mode != nil {
		mode = *req.Mode
	}
	state, err := draft.NewState(req.DraftID, participants, m.cfg.Rules, mode)
	if err != nil {
		return draft.Snapshot{}, err
	}

	opts := draft.Options{Pacing: &m.cfg.Pacing, Retry: &m.cfg.Retry}
	if m.cfg.Seed != 0 {
		opts.Rand = draft.NewSeededRand(m.cfg.Seed)
	}
	e := &entry{ctrl: draft.NewController(state, cat, m.broker, m.announcer, opts)}

	m.mu.Lock()
	if _, exists := m.drafts[req.DraftID]; exists {
		m.mu.Unlock()
		return draft.Snapshot{}, fmt.Errorf("%w: %s", ErrDraftExists, req.DraftID)
	}
	m.drafts[req.DraftID] = e
	m.launchLocked(req.DraftID, e)
	m.mu.Unlock()

	logger.Info("Draft created", "draft_id", req.DraftID, "participants", len(participants), "dummies", req.Dummies, "catalog", cat.Len())
	return state.Snapshot(), nil
}

func (m *Manager) launchLocked(draftID string, e *entry) {
	ctx, cancel := context.WithCancel(m.ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.lastErr = nil

	m.wg.Add(1)
	go func(done chan struct{}) {
		defer m.wg.Done()
		defer close(done)
		defer cancel()

		err := e.ctrl.Run(ctx)
		if err != nil {
			logger.Warn("Draft stopped", "draft_id", draftID, "error", err)
		} else {
			logger.Info("Draft finished", "draft_id", draftID)
		}
		m.mu.Lock()
		e.lastErr = err
		m.mu.Unlock()
	}(e.done)
}

func (m *Manager) get(draftID string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.drafts[draftID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, draftID)
	}
	return e, nil
}

// Resume restarts a paused draft from where it stopped. Staff only. A draft
// whose loop is still running, even if blocked on a prompt, gives
// draft.ErrAlreadyRunning.
func (m *Manager) Resume(ctx context.Context, draftID, actorID string) error {
	if !auth.IsStaffActor(ctx, m.authz, actorID) {
		return ErrForbidden
	}
	e, err := m.get(draftID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state := e.ctrl.State()
	switch {
	case e.ctrl.Running():
		return draft.ErrAlreadyRunning
	case !state.Active():
		return draft.ErrDraftInactive
	case !state.Paused():
		return ErrNotPaused
	}
	select {
	case <-e.done:
	default:
		// Run has returned but the goroutine has not closed done yet
		return draft.ErrAlreadyRunning
	}
	logger.Info("Resuming draft", "draft_id", draftID, "actor", actorID)
	m.launchLocked(draftID, e)
	return nil
}

// SetMode switches the auto mode. It applies from the next turn. Staff only.
func (m *Manager) SetMode(ctx context.Context, draftID, actorID string, mode models.AutoMode) error {
	if !auth.IsStaffActor(ctx, m.authz, actorID) {
		return ErrForbidden
	}
	e, err := m.get(draftID)
	if err != nil {
		return err
	}
	state := e.ctrl.State()
	if !state.Active() {
		return draft.ErrDraftInactive
	}
	state.SetMode(mode)
	logger.Info("Auto mode changed", "draft_id", draftID, "mode", mode, "actor", actorID)
	m.announcer.Announce(draft.Event{
		Type:    draft.EventModeChanged,
		DraftID: draftID,
		Round:   state.Round(),
		Mode:    &mode,
		ActorID: actorID,
	})
	return nil
}

// ToggleMode cycles INTERACTIVE → AUTO_PUBLIC → AUTO_SILENT → INTERACTIVE
func (m *Manager) ToggleMode(ctx context.Context, draftID, actorID string) (models.AutoMode, error) {
	e, err := m.get(draftID)
	if err != nil {
		return 0, err
	}
	next := e.ctrl.State().Mode().Next()
	if err := m.SetMode(ctx, draftID, actorID, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Decide forwards a participant's action to the waiting prompt
func (m *Manager) Decide(ctx context.Context, draftID, actorID string, action draft.Action) error {
	if _, err := m.get(draftID); err != nil {
		return err
	}
	return m.broker.Decide(ctx, draftID, actorID, action)
}

// Pending returns the prompt the draft is waiting on, if any
func (m *Manager) Pending(draftID string) (draft.Prompt, bool) {
	return m.broker.Pending(draftID)
}

func (m *Manager) Snapshot(draftID string) (draft.Snapshot, error) {
	e, err := m.get(draftID)
	if err != nil {
		return draft.Snapshot{}, err
	}
	return e.ctrl.State().Snapshot(), nil
}

// Summary lists every participant's roster and remaining budget
func (m *Manager) Summary(draftID string) ([]draft.Standing, error) {
	e, err := m.get(draftID)
	if err != nil {
		return nil, err
	}
	return e.ctrl.State().Standings(), nil
}

// Odds returns the tier odds for the participant currently on the clock
func (m *Manager) Odds(draftID string) (Odds, error) {
	e, err := m.get(draftID)
	if err != nil {
		return Odds{}, err
	}
	state := e.ctrl.State()
	p, pickIndex, ok := state.Current()
	if !ok || !state.Active() {
		return Odds{}, draft.ErrDraftInactive
	}
	roster, spent, _ := state.View(p.ID)
	rules := state.Rules()
	tiers := draft.EligibleTiers(rules, roster, spent, pickIndex)
	return Odds{Participant: p, PickIndex: pickIndex, Tiers: draft.OddsFor(rules, tiers)}, nil
}

// Status is the snapshot plus what the hosting goroutine is doing
type Status struct {
	draft.Snapshot
	Running   bool          `json:"running"`
	LastError string        `json:"lastError,omitempty"`
	Pending   *draft.Prompt `json:"pending,omitempty"`
}

func (m *Manager) Status(draftID string) (Status, error) {
	e, err := m.get(draftID)
	if err != nil {
		return Status{}, err
	}
	st := Status{Snapshot: e.ctrl.State().Snapshot(), Running: e.ctrl.Running()}
	m.mu.RLock()
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	m.mu.RUnlock()
	if p, ok := m.broker.Pending(draftID); ok {
		st.Pending = &p
	}
	return st, nil
}

// Done is closed when the draft's current run returns
func (m *Manager) Done(draftID string) (<-chan struct{}, error) {
	e, err := m.get(draftID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return e.done, nil
}

// List returns the ids of all hosted drafts
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.drafts))
	for id := range m.drafts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Shutdown stops every running draft, leaving each one paused
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	for _, e := range m.drafts {
		e.cancel()
	}
	m.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
