package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/config"
	"github.com/hireloop/hireloop-api/internal/engine"
	"github.com/hireloop/hireloop-api/internal/gateway"
	"github.com/hireloop/hireloop-api/internal/handlers"
	"github.com/hireloop/hireloop-api/internal/housekeeping"
	"github.com/hireloop/hireloop-api/internal/middleware"
	"github.com/hireloop/hireloop-api/internal/migration"
	"github.com/hireloop/hireloop-api/internal/producer"
	"github.com/hireloop/hireloop-api/internal/producer/activities"
	"github.com/hireloop/hireloop-api/internal/producer/workflows"
	"github.com/hireloop/hireloop-api/internal/repository"
	"github.com/hireloop/hireloop-api/internal/routes"
	syncpkg "github.com/hireloop/hireloop-api/internal/sync"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	redisClient    *redis.Client
	temporalClient tc.Client
	feed           *syncpkg.RedisFeed
	logger         zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	temporalLogger := producer.NewTemporalAdapter(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Initialize the redis client backing the change feed.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid redis URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping redis")
	}

	// Initialize Temporal client.
	temporalClient, err := tc.Dial(tc.Options{
		Logger: temporalLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create Temporal client")
	}
	defer temporalClient.Close()

	// Create the application instance.
	app := &application{
		config:         cfg,
		db:             db,
		redisClient:    redisClient,
		temporalClient: temporalClient,
		feed:           syncpkg.NewRedisFeed(redisClient, logger),
		logger:         logger,
	}

	// Start the Temporal worker in a separate goroutine.
	temporalWorker := app.startTemporalWorker(logger)

	// Start the token sweeper.
	sweeper := housekeeping.NewSweeper(repository.NewRunRepository(app.db), cfg.SweepSpec, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start token sweeper")
	}
	defer sweeper.Stop()

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, temporalWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	// Repositories
	runRepo := repository.NewRunRepository(app.db)
	jobRepo := repository.NewJobRepository(app.db)
	companyRepo := repository.NewCompanyRepository(app.db)
	contactRepo := repository.NewContactRepository(app.db)
	messageRepo := repository.NewMessageRepository(app.db)
	searchRepo := repository.NewSearchRepository(app.db)

	messageGateway := gateway.NewMessageGateway(
		app.config.Generator.WebhookURL,
		app.config.Generator.RequestTimeout,
		contactRepo, jobRepo, messageRepo, logger,
	)

	syncOpts := syncpkg.Options{
		PollInterval: app.config.Sync.PollInterval,
		MaxBackoff:   app.config.Sync.MaxBackoff,
		MaxRetries:   app.config.Sync.MaxRetries,
		SoftDeadline: app.config.Sync.SoftDeadline,
	}

	// Handlers
	searchHandler := handlers.NewSearchHandler(searchRepo, runRepo, app.temporalClient, app.config.JWTSecret, app.config.CredentialTTL, logger)
	runHandler := handlers.NewRunHandler(runRepo, logger)
	jobHandler := handlers.NewJobHandler(jobRepo, logger)
	contactHandler := handlers.NewContactHandler(contactRepo, logger)
	messageHandler := handlers.NewMessageHandler(messageGateway, messageRepo, logger)
	streamHandler := handlers.NewStreamHandler(runRepo, jobRepo, contactRepo, app.feed, syncOpts, logger)
	historyHandler := handlers.NewSearchHistoryHandler(searchRepo, logger)
	ingestHandler := handlers.NewIngestHandler(runRepo, jobRepo, companyRepo, contactRepo, app.feed, logger)

	return routes.NewRouter(
		app.config.JWTSecret,
		searchHandler, runHandler, jobHandler, contactHandler,
		messageHandler, streamHandler, historyHandler, ingestHandler,
	)
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	engineClient := engine.NewClient(app.config.Engine.BaseURL, app.config.Engine.RequestTimeout, logger)

	activityImpl := &activities.Activities{
		RunRepo:         repository.NewRunRepository(app.db),
		Engine:          engineClient,
		Publisher:       app.feed,
		JWTSecret:       app.config.JWTSecret,
		CallbackBaseURL: app.config.Engine.CallbackBaseURL,
	}

	w := worker.New(app.temporalClient, producer.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.SearchWorkflow)
	w.RegisterActivity(activityImpl)

	// Start the worker in a goroutine so it doesn't block.
	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the Temporal worker.
	logger.Info().Msg("Stopping Temporal worker...")
	temporalWorker.Stop()
	logger.Info().Msg("Temporal worker stopped.")
}
