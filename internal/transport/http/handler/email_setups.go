package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-mail-setup/internal/application/emailsetup"
	"github.com/go-mail-setup/internal/transport/http/middleware"
)

// EmailSetupHandler serves completed setups.
type EmailSetupHandler struct {
	svc emailsetup.Service
}

func NewEmailSetupHandler(svc emailsetup.Service) *EmailSetupHandler {
	return &EmailSetupHandler{svc: svc}
}

func (h *EmailSetupHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	setups, err := h.svc.List(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EmailSetupsEnvelope{Data: setups, Count: len(setups)})
}

func (h *EmailSetupHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	setup, err := h.svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setup)
}
