package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// Check probes one backing dependency.
type Check func(ctx context.Context) error

// HealthHandler serves liveness ("ping") and readiness ("ready") probes.
type HealthHandler struct {
	checks  map[string]Check
	timeout time.Duration
}

// ReadinessEnvelope lists the failing dependencies, if any.
type ReadinessEnvelope struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 3 * time.Second}
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "ready":
		h.ready(w, r)
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *HealthHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, ReadinessEnvelope{Status: "degraded", Failed: failed})
		return
	}
	writeJSON(w, http.StatusOK, ReadinessEnvelope{Status: "ready"})
}
