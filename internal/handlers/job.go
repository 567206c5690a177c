package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/authz"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

type JobHandler struct {
	jobs   repository.JobRepository
	logger zerolog.Logger
}

func NewJobHandler(jobs repository.JobRepository, logger zerolog.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger.With().Str("component", "job_handler").Logger(),
	}
}

type jobListResponse struct {
	Data  []models.Job `json:"data"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// ListJobs serves the filtered, paginated job listing. Browsing the whole
// store is open; scoping to a run requires that run's credential.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := repository.ParseJobFilter(r.URL.Query())
	if err != nil {
		var verr *repository.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid filter")
		return
	}

	if filter.RunID != nil {
		claims, ok := authz.RunClaimsFromRequest(r)
		if !ok || claims.RunID != *filter.RunID {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "run access requires a matching credential",
				"code":  authz.CodeCredentialInvalid,
			})
			return
		}
	}

	jobs, total, err := h.jobs.List(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	writeJSON(w, http.StatusOK, jobListResponse{
		Data:  jobs,
		Total: total,
		Page:  filter.Page,
		Limit: filter.PageSize,
	})
}

// GetJob returns a single job row.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to fetch job")
		writeError(w, http.StatusInternalServerError, "Failed to fetch job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}
