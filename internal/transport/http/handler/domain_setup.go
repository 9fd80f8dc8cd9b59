package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-mail-setup/internal/application/setup"
	"github.com/go-mail-setup/internal/domain"
	"github.com/go-mail-setup/internal/transport/http/middleware"
)

// DomainSetupHandler drives setup attempts.
type DomainSetupHandler struct {
	svc setup.Service
}

func NewDomainSetupHandler(svc setup.Service) *DomainSetupHandler {
	return &DomainSetupHandler{svc: svc}
}

// Start accepts the wizard form and returns 202 with the attempt snapshot.
func (h *DomainSetupHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.StartSetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := h.svc.Start(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/domain-setup/"+snap.ID)
	writeJSON(w, http.StatusAccepted, snap)
}

func (h *DomainSetupHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.withAttempt(w, r, h.svc.Get, http.StatusOK)
}

func (h *DomainSetupHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.withAttempt(w, r, h.svc.Retry, http.StatusAccepted)
}

func (h *DomainSetupHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.withAttempt(w, r, h.svc.Cancel, http.StatusAccepted)
}

func (h *DomainSetupHandler) withAttempt(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, userID, attemptID string) (*setup.Snapshot, error), status int) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	snap, err := op(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, status, snap)
}
