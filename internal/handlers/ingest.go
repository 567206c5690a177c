package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
	syncpkg "github.com/hireloop/hireloop-api/internal/sync"
)

// IngestHandler receives the engine's write-backs: job batches while the
// search runs, and the final status transition. Both routes sit behind the
// producer credential.
type IngestHandler struct {
	runs      repository.RunRepository
	jobs      repository.JobRepository
	companies repository.CompanyRepository
	contacts  repository.ContactRepository
	publisher syncpkg.Publisher
	logger    zerolog.Logger
}

func NewIngestHandler(runs repository.RunRepository, jobs repository.JobRepository, companies repository.CompanyRepository, contacts repository.ContactRepository, publisher syncpkg.Publisher, logger zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		runs:      runs,
		jobs:      jobs,
		companies: companies,
		contacts:  contacts,
		publisher: publisher,
		logger:    logger.With().Str("component", "ingest_handler").Logger(),
	}
}

type ingestJob struct {
	models.Job
	Company  *models.Company  `json:"company,omitempty"`
	Contacts []models.Contact `json:"contacts,omitempty"`
}

// IngestJobs upserts a batch of discovered jobs for a run. Each row is
// keyed by job_id, so redelivered batches converge instead of duplicating.
func (h *IngestHandler) IngestJobs(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	ctx := r.Context()

	var payload struct {
		Jobs []ingestJob `json:"jobs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	accepted := 0
	for _, item := range payload.Jobs {
		job := item.Job
		if job.JobID == "" {
			job.JobID = uuid.NewString()
		}
		job.RunID = &runID

		if item.Company != nil {
			if item.Company.CompanyID == "" {
				item.Company.CompanyID = uuid.NewString()
			}
			if err := h.companies.UpsertCompany(ctx, *item.Company); err != nil {
				h.logger.Error().Err(err).Str("company_id", item.Company.CompanyID).Msg("Failed to upsert company")
				writeError(w, http.StatusInternalServerError, "Failed to ingest jobs")
				return
			}
			if job.CompanyID == nil {
				job.CompanyID = &item.Company.CompanyID
			}
		}

		if err := h.jobs.UpsertJob(ctx, job); err != nil {
			h.logger.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to upsert job")
			writeError(w, http.StatusInternalServerError, "Failed to ingest jobs")
			return
		}

		for _, contact := range item.Contacts {
			if contact.ContactID == "" {
				contact.ContactID = uuid.NewString()
			}
			if contact.CompanyID == nil {
				contact.CompanyID = job.CompanyID
			}
			if contact.JobID == nil {
				contact.JobID = &job.JobID
			}
			if err := h.contacts.UpsertContact(ctx, contact); err != nil {
				h.logger.Error().Err(err).Str("contact_id", contact.ContactID).Msg("Failed to upsert contact")
				writeError(w, http.StatusInternalServerError, "Failed to ingest jobs")
				return
			}
		}

		// Re-read so subscribers see the merged row, not the raw input.
		stored, err := h.jobs.GetJob(ctx, job.JobID)
		if err != nil {
			stored = job
		}
		if err := h.publisher.PublishJobUpserted(ctx, runID, stored); err != nil {
			h.logger.Warn().Err(err).Str("job_id", job.JobID).Msg("Failed to publish job event")
		}
		accepted++
	}

	writeJSON(w, http.StatusOK, map[string]int{"accepted": accepted})
}

// IngestStatus applies the engine's status transition for a run. The store
// enforces monotonicity; a transition against a terminal run is a conflict.
func (h *IngestHandler) IngestStatus(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["run_id"]
	ctx := r.Context()

	var payload struct {
		Status     string          `json:"status"`
		Stats      json.RawMessage `json:"stats"`
		StopReason *string         `json:"stop_reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	status := models.RunStatus(payload.Status)
	if !models.IsValidRunStatus(status) {
		writeError(w, http.StatusBadRequest, "Invalid run status")
		return
	}

	affected, err := h.runs.UpdateStatus(ctx, runID, status, payload.Stats, payload.StopReason)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to update run status")
		writeError(w, http.StatusInternalServerError, "Failed to update run status")
		return
	}
	if affected == 0 {
		writeError(w, http.StatusConflict, "Run is already terminal")
		return
	}

	if err := h.publisher.PublishRunStatus(ctx, runID, status, payload.StopReason); err != nil {
		h.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to publish status event")
	}
	writeJSON(w, http.StatusOK, map[string]string{"run_id": runID, "status": string(status)})
}
