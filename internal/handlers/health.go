package handlers

import (
	"context"
	"net/http"
	"time"
)

type connectedChecker interface {
	Connected() bool
}

// Health reports the state of every dependency
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})
	degrade := func(name string, err error) {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
		checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
	}

	if _, err := h.store.LoadCatalog(); err != nil {
		degrade("database", err)
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	if h.analytics != nil {
		if err := h.analytics.Ping(ctx); err != nil {
			degrade("clickhouse", err)
		} else {
			checks["clickhouse"] = map[string]interface{}{"status": "healthy"}
		}
	} else {
		checks["clickhouse"] = map[string]interface{}{"status": "not_configured"}
	}

	if c, ok := h.bus.(connectedChecker); ok {
		if c.Connected() {
			checks["nats"] = map[string]interface{}{"status": "healthy"}
		} else {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			checks["nats"] = map[string]interface{}{"status": "disconnected"}
		}
	}

	checks["drafts"] = map[string]interface{}{"hosted": len(h.drafts.List())}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Liveness handles Kubernetes liveness probes.
// Returns 200 if the application is running (doesn't check dependencies)
func Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness handles Kubernetes readiness probes; the catalog store is the critical dependency
func (h *APIHandlers) Readiness(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.LoadCatalog(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "not_ready",
			"reason":    "database_unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
