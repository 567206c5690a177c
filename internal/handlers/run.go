package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/repository"
)

type RunHandler struct {
	runs   repository.RunRepository
	logger zerolog.Logger
}

func NewRunHandler(runs repository.RunRepository, logger zerolog.Logger) *RunHandler {
	return &RunHandler{
		runs:   runs,
		logger: logger.With().Str("component", "run_handler").Logger(),
	}
}

// GetRun returns one run. Route access is guarded by the run credential
// middleware, so the run id here is already the caller's own.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to fetch run")
		writeError(w, http.StatusInternalServerError, "Failed to fetch run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
