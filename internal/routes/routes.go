package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hireloop/hireloop-api/internal/authz"
	"github.com/hireloop/hireloop-api/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(
	jwtSecret string,
	search *handlers.SearchHandler,
	run *handlers.RunHandler,
	job *handlers.JobHandler,
	contact *handlers.ContactHandler,
	message *handlers.MessageHandler,
	stream *handlers.StreamHandler,
	history *handlers.SearchHistoryHandler,
	ingest *handlers.IngestHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Webhook endpoints the frontend calls to start work
	router.HandleFunc("/webhook/search/start", search.StartSearch).Methods(http.MethodPost)
	router.HandleFunc("/webhook/search/company", search.StartCompanySearch).Methods(http.MethodPost)
	router.HandleFunc("/webhook/generate-message", message.GenerateMessage).Methods(http.MethodPost)

	// Run-scoped routes require the run credential.
	runRoutes := router.PathPrefix("/api/runs").Subrouter()
	runRoutes.Use(authz.RequireRunAccess(jwtSecret))
	runRoutes.HandleFunc("/{run_id}", run.GetRun).Methods(http.MethodGet)
	runRoutes.HandleFunc("/{run_id}/stream", stream.Stream).Methods(http.MethodGet)

	// Browse routes. The job listing accepts an optional credential for
	// run-scoped filtering.
	jobRoutes := router.PathPrefix("/api/jobs").Subrouter()
	jobRoutes.Use(authz.AttachRunAccess(jwtSecret))
	jobRoutes.HandleFunc("", job.ListJobs).Methods(http.MethodGet)
	jobRoutes.HandleFunc("/{job_id}", job.GetJob).Methods(http.MethodGet)

	router.HandleFunc("/api/contacts", contact.ListByCompany).Methods(http.MethodGet)
	router.HandleFunc("/api/messages/latest", message.LatestMessage).Methods(http.MethodGet)
	router.HandleFunc("/api/searches", history.ListRecent).Methods(http.MethodGet)

	// Engine write-back routes sit behind the producer token.
	ingestRoutes := router.PathPrefix("/ingest/runs").Subrouter()
	ingestRoutes.Use(authz.RequireProducer(jwtSecret))
	ingestRoutes.HandleFunc("/{run_id}/jobs", ingest.IngestJobs).Methods(http.MethodPost)
	ingestRoutes.HandleFunc("/{run_id}/status", ingest.IngestStatus).Methods(http.MethodPost)

	return router
}
