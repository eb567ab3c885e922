package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/auth"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/clickhouse"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/dal"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/draft"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/prompt"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/pubsub"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/session"
)

// Analytics is the pick-history sink the tier report reads from
type Analytics interface {
	TierPullRates(ctx context.Context, window time.Duration) ([]clickhouse.TierRate, error)
	Ping(ctx context.Context) error
}

// APIHandlers contains all API handler methods
type APIHandlers struct {
	drafts    *session.Manager
	store     dal.DraftDAL
	bus       pubsub.Publisher
	authz     auth.Authorizer
	analytics Analytics
}

// NewAPIHandlers creates a new API handlers instance. analytics may be nil.
func NewAPIHandlers(drafts *session.Manager, store dal.DraftDAL, bus pubsub.Publisher, authz auth.Authorizer, analytics Analytics) *APIHandlers {
	return &APIHandlers{
		drafts:    drafts,
		store:     store,
		bus:       bus,
		authz:     authz,
		analytics: analytics,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, session.ErrForbidden), errors.Is(err, prompt.ErrNotAuthorized):
		code = http.StatusForbidden
	case errors.Is(err, prompt.ErrRateLimited):
		code = http.StatusTooManyRequests
	case errors.Is(err, prompt.ErrInvalidAction),
		errors.Is(err, draft.ErrNoParticipants),
		errors.Is(err, draft.ErrBadParticipant),
		errors.Is(err, dal.ErrInvalidItem):
		code = http.StatusBadRequest
	case errors.Is(err, session.ErrDraftExists),
		errors.Is(err, session.ErrNotPaused),
		errors.Is(err, draft.ErrDraftInactive),
		errors.Is(err, draft.ErrAlreadyRunning),
		errors.Is(err, prompt.ErrNoPendingPrompt):
		code = http.StatusConflict
	}

	msg := err.Error()
	if code == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Warn("Failed to decode request", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func actorID(r *http.Request) string {
	if u := auth.GetUser(r); u != nil {
		return u.ID
	}
	return ""
}

// StartDraft creates a draft and starts its controller
func (h *APIHandlers) StartDraft(w http.ResponseWriter, r *http.Request) {
	var req session.StartRequest
	if !decodeBody(w, r, &req) {
		return
	}
	snap, err := h.drafts.Start(r.Context(), actorID(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ListDrafts returns the ids of hosted drafts
func (h *APIHandlers) ListDrafts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"drafts": h.drafts.List()})
}

// GetDraft returns the draft ledger plus its run status
func (h *APIHandlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	st, err := h.drafts.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetSummary returns each participant's roster, points and rerolls
func (h *APIHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	standings, err := h.drafts.Summary(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"standings": standings})
}

// GetOdds returns the tier odds for the participant on the clock
func (h *APIHandlers) GetOdds(w http.ResponseWriter, r *http.Request) {
	odds, err := h.drafts.Odds(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, odds)
}

// ListPicks returns the recorded pick history of a draft
func (h *APIHandlers) ListPicks(w http.ResponseWriter, r *http.Request) {
	picks, err := h.store.ListPicks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if picks == nil {
		picks = []models.PickRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"picks": picks})
}

// Decide answers the pending roll or keep/reroll prompt
func (h *APIHandlers) Decide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action draft.Action `json:"action"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.drafts.Decide(r.Context(), chi.URLParam(r, "id"), actorID(r), req.Action); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// Resume restarts a paused draft
func (h *APIHandlers) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Resume(r.Context(), chi.URLParam(r, "id"), actorID(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"resumed": true})
}

// SetMode sets the auto mode, or cycles it when the body names none
func (h *APIHandlers) SetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode *models.AutoMode `json:"mode"`
	}
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if req.Mode == nil {
		mode, err := h.drafts.ToggleMode(r.Context(), id, actorID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"mode": mode})
		return
	}
	if err := h.drafts.SetMode(r.Context(), id, actorID(r), *req.Mode); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": *req.Mode})
}

// ListCatalog returns the items new drafts will draw from
func (h *APIHandlers) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.LoadCatalog()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// AddItem adds or updates a catalog item. Staff only.
func (h *APIHandlers) AddItem(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaffActor(r.Context(), h.authz, actorID(r)) {
		writeError(w, session.ErrForbidden)
		return
	}
	var item models.Item
	if !decodeBody(w, r, &item) {
		return
	}
	if err := h.store.AddItem(item); err != nil {
		writeError(w, err)
		return
	}
	logger.Info("Catalog item saved", "name", item.Name, "tier", item.Tier, "actor", actorID(r))
	writeJSON(w, http.StatusCreated, item)
}

// ImportCatalog upserts every row of a Name,Mega,Tier CSV body. Staff only.
func (h *APIHandlers) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	if !auth.IsStaffActor(r.Context(), h.authz, actorID(r)) {
		writeError(w, session.ErrForbidden)
		return
	}
	items, err := dal.ParseCatalogCSV(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	for _, item := range items {
		if err := h.store.AddItem(item); err != nil {
			writeError(w, err)
			return
		}
	}
	logger.Info("Catalog imported", "items", len(items), "actor", actorID(r))
	writeJSON(w, http.StatusOK, map[string]int{"imported": len(items)})
}

// TierPullRates reports how often each tier was drafted, default window 7 days
func (h *APIHandlers) TierPullRates(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analytics not configured"})
		return
	}
	window := 7 * 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid window"})
			return
		}
		window = d
	}
	rates, err := h.analytics.TierPullRates(r.Context(), window)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"window": window.String(), "tiers": rates})
}
