package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

type SearchHistoryHandler struct {
	searches repository.SearchRepository
	logger   zerolog.Logger
}

func NewSearchHistoryHandler(searches repository.SearchRepository, logger zerolog.Logger) *SearchHistoryHandler {
	return &SearchHistoryHandler{
		searches: searches,
		logger:   logger.With().Str("component", "search_history_handler").Logger(),
	}
}

// ListRecent returns the most recent searches, newest first.
func (h *SearchHistoryHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	searches, err := h.searches.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list searches")
		writeError(w, http.StatusInternalServerError, "Failed to list searches")
		return
	}
	if searches == nil {
		searches = []models.Search{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": searches})
}
