package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/auth"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/logger"
)

// Routes wires every endpoint. Reads are public; anything that acts on a
// draft or the catalog goes through the provider's middleware.
func (h *APIHandlers) Routes(p auth.Provider) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", Liveness)
	r.Get("/readyz", h.Readiness)
	r.Get("/api/health", h.Health)

	r.Get("/auth/login", p.LoginHandler)
	r.Get("/auth/callback", p.CallbackHandler)

	r.Get("/api/events", h.EventsSSE)
	r.Get("/ws", h.EventsWS)

	r.Route("/api/drafts", func(r chi.Router) {
		r.Get("/", h.ListDrafts)
		r.Get("/{id}", h.GetDraft)
		r.Get("/{id}/summary", h.GetSummary)
		r.Get("/{id}/odds", h.GetOdds)
		r.Get("/{id}/picks", h.ListPicks)

		r.Group(func(r chi.Router) {
			r.Use(p.Middleware)
			r.Post("/", h.StartDraft)
			r.Post("/{id}/decide", h.Decide)
			r.Post("/{id}/resume", h.Resume)
			r.Post("/{id}/mode", h.SetMode)
		})
	})

	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/", h.ListCatalog)
		r.With(p.Middleware).Post("/", h.AddItem)
		r.With(p.Middleware).Post("/import", h.ImportCatalog)
	})

	r.Get("/api/analytics/tiers", h.TierPullRates)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
