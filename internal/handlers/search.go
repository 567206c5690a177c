package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	tc "go.temporal.io/sdk/client"

	"github.com/hireloop/hireloop-api/internal/authz"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/producer"
	"github.com/hireloop/hireloop-api/internal/producer/workflows"
	"github.com/hireloop/hireloop-api/internal/repository"
)

// WorkflowStarter is the slice of the Temporal client the handler needs.
// tc.Client satisfies it.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options tc.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tc.WorkflowRun, error)
}

type SearchHandler struct {
	searches       repository.SearchRepository
	runs           repository.RunRepository
	temporalClient WorkflowStarter
	jwtSecret      string
	credentialTTL  time.Duration
	logger         zerolog.Logger
}

func NewSearchHandler(searches repository.SearchRepository, runs repository.RunRepository, temporalClient WorkflowStarter, jwtSecret string, credentialTTL time.Duration, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{
		searches:       searches,
		runs:           runs,
		temporalClient: temporalClient,
		jwtSecret:      jwtSecret,
		credentialTTL:  credentialTTL,
		logger:         logger.With().Str("component", "search_handler").Logger(),
	}
}

type startRunResponse struct {
	RunID       string    `json:"run_id"`
	SearchID    string    `json:"search_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// StartSearch creates a search and its run, mints the run-scoped viewer
// credential and kicks off the search workflow.
func (h *SearchHandler) StartSearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query    string          `json:"query"`
		Location string          `json:"location"`
		Params   json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	h.startRun(w, r, payload.Query, payload.Location, payload.Params)
}

// StartCompanySearch starts a run scoped to a single company.
func (h *SearchHandler) StartCompanySearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Company string          `json:"company"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Company == "" {
		writeError(w, http.StatusBadRequest, "company is required")
		return
	}
	h.startRun(w, r, "Company: "+payload.Company, "", payload.Params)
}

func (h *SearchHandler) startRun(w http.ResponseWriter, r *http.Request, query, location string, params json.RawMessage) {
	ctx := r.Context()

	search, err := h.searches.CreateSearch(ctx, models.Search{
		SearchID: uuid.NewString(),
		Query:    query,
		Location: location,
		Params:   params,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create search")
		writeError(w, http.StatusInternalServerError, "Failed to create search")
		return
	}

	viewToken, err := authz.NewViewToken()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate view token")
		writeError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}
	runID := uuid.NewString()
	accessToken, expiresAt, err := authz.IssueRunCredential(h.jwtSecret, runID, viewToken, h.credentialTTL)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to issue run credential")
		writeError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	run := models.Run{
		RunID:          runID,
		Query:          query,
		Params:         params,
		Status:         models.RunStatusPending,
		SearchID:       &search.SearchID,
		ViewToken:      &viewToken,
		TokenExpiresAt: &expiresAt,
	}
	if _, err := h.runs.CreateRun(ctx, run); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create run")
		writeError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	workflowOpts := tc.StartWorkflowOptions{
		ID:        producer.SearchWorkflowIDPrefix + runID,
		TaskQueue: producer.TaskQueueName,
	}
	workflowParams := producer.SearchParams{
		RunID:    runID,
		SearchID: search.SearchID,
		Query:    query,
		Params:   params,
	}
	if _, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOpts, workflows.SearchWorkflow, workflowParams); err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to start search workflow")
		reason := "failed to start search workflow"
		h.runs.UpdateStatus(ctx, runID, models.RunStatusFailed, nil, &reason)
		writeError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	h.logger.Info().Str("run_id", runID).Str("search_id", search.SearchID).Msg("Run started")
	writeJSON(w, http.StatusAccepted, startRunResponse{
		RunID:       runID,
		SearchID:    search.SearchID,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
	})
}
