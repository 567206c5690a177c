package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

type ContactHandler struct {
	contacts repository.ContactRepository
	logger   zerolog.Logger
}

func NewContactHandler(contacts repository.ContactRepository, logger zerolog.Logger) *ContactHandler {
	return &ContactHandler{
		contacts: contacts,
		logger:   logger.With().Str("component", "contact_handler").Logger(),
	}
}

// ListByCompany returns the contacts known for a company. A company with
// no discovered contacts yet is an empty list, not an error.
func (h *ContactHandler) ListByCompany(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		writeError(w, http.StatusBadRequest, "company_id is required")
		return
	}

	contacts, err := h.contacts.ListByCompany(r.Context(), companyID)
	if err != nil {
		h.logger.Error().Err(err).Str("company_id", companyID).Msg("Failed to list contacts")
		writeError(w, http.StatusInternalServerError, "Failed to list contacts")
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": contacts})
}
