package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trimlink/trimlink/internal/handler/dto"
	"github.com/trimlink/trimlink/internal/service"
)

// DomainHandler serves the read-only domain surface.
type DomainHandler struct {
	svc    *service.DomainService
	logger *slog.Logger
}

// NewDomainHandler creates a new DomainHandler.
func NewDomainHandler(svc *service.DomainService, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{svc: svc, logger: logger}
}

// List handles GET /api/domains.
func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	domains, err := h.svc.ListDomains(r.Context())
	if err != nil {
		h.logger.Error("domain_list_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	responses := make([]*dto.DomainResponse, len(domains))
	for i, d := range domains {
		responses[i] = dto.ToDomainResponse(d)
	}

	writeJSON(w, http.StatusOK, responses)
}

// Get handles GET /api/domains/{id}.
func (h *DomainHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Domain ID is required")
		return
	}

	domain, err := h.svc.GetDomain(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrDomainInvalid) {
			writeError(w, http.StatusNotFound, "DOMAIN_NOT_FOUND", "Domain not found")
			return
		}
		h.logger.Error("domain_get_error", "domain_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDomainResponse(domain))
}
