package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-mail-setup/internal/domain"
)

// RecordBuilder computes a provider's record set without publishing it.
type RecordBuilder interface {
	Build(d domain.DomainName, p domain.Provider) (domain.ProviderRecordSet, error)
}

// RecordsHandler previews the DNS records a setup would publish.
type RecordsHandler struct {
	builder RecordBuilder
}

func NewRecordsHandler(b RecordBuilder) *RecordsHandler {
	return &RecordsHandler{builder: b}
}

func (h *RecordsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	p, err := domain.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		httpError(w, err)
		return
	}
	d, err := domain.ParseDomainName(r.URL.Query().Get("domain"))
	if err != nil {
		httpError(w, err)
		return
	}
	set, err := h.builder.Build(d, p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}
