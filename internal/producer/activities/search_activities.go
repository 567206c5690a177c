package activities

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"

	"github.com/hireloop/hireloop-api/internal/authz"
	"github.com/hireloop/hireloop-api/internal/engine"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/producer"
	"github.com/hireloop/hireloop-api/internal/repository"
	syncpkg "github.com/hireloop/hireloop-api/internal/sync"
)

type Activities struct {
	RunRepo         repository.RunRepository
	Engine          *engine.Client
	Publisher       syncpkg.Publisher
	JWTSecret       string
	CallbackBaseURL string
	// CompletionPollInterval is how often AwaitCompletionActivity checks
	// the run status; defaults to 5s.
	CompletionPollInterval time.Duration
	// ProducerTokenTTL bounds the callback credential handed to the
	// engine; defaults to 1h.
	ProducerTokenTTL time.Duration
}

// MarkRunRunningActivity moves the run from pending to running and pushes
// the transition onto the change feed.
func (a *Activities) MarkRunRunningActivity(ctx context.Context, runID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Marking run as running", "RunID", runID)

	affected, err := a.RunRepo.UpdateStatus(ctx, runID, models.RunStatusRunning, nil, nil)
	if err != nil {
		logger.Error("Failed to update run status", "RunID", runID, "error", err)
		return err
	}
	if affected == 0 {
		// Already terminal; the workflow should not keep driving it.
		return errors.Errorf("run %s is no longer pending", runID)
	}
	if err := a.Publisher.PublishRunStatus(ctx, runID, models.RunStatusRunning, nil); err != nil {
		// The feed is best-effort; polling viewers still converge.
		logger.Warn("Failed to publish run status", "RunID", runID, "error", err)
	}
	return nil
}

// DispatchSearchActivity hands the query to the engine along with the
// callback credential the engine uses to write results back.
func (a *Activities) DispatchSearchActivity(ctx context.Context, params producer.SearchParams) (*producer.DispatchResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Dispatching search to engine", "RunID", params.RunID)

	ttl := a.ProducerTokenTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	authToken, err := authz.IssueProducerToken(a.JWTSecret, params.RunID, ttl)
	if err != nil {
		return nil, errors.Wrap(err, "issue producer token")
	}
	callbackURL := a.CallbackBaseURL + "/ingest/runs/" + params.RunID

	resp, err := a.Engine.StartSearch(ctx, params.RunID, params.Query, params.Params, callbackURL, authToken)
	if err != nil {
		return nil, err
	}
	return &producer.DispatchResult{RunID: params.RunID, EngineID: resp.EngineID}, nil
}

// AwaitCompletionActivity polls the run until the engine's callbacks move
// it to a terminal status. Heartbeats keep the activity alive for long
// searches; the workflow's activity timeout bounds the total wait.
func (a *Activities) AwaitCompletionActivity(ctx context.Context, runID string) (string, error) {
	logger := activity.GetLogger(ctx)
	interval := a.CompletionPollInterval
	if interval == 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			activity.RecordHeartbeat(ctx, "awaiting-completion")
			run, err := a.RunRepo.GetRun(ctx, runID)
			if err != nil {
				logger.Warn("Failed to fetch run while awaiting completion", "RunID", runID, "error", err)
				continue
			}
			if run.Status.IsTerminal() {
				logger.Info("Run reached terminal status", "RunID", runID, "Status", run.Status)
				return string(run.Status), nil
			}
		}
	}
}

// FailRunActivity marks the run failed with a stop reason. The monotonic
// guard in the repository makes this a no-op for runs the engine already
// completed.
func (a *Activities) FailRunActivity(ctx context.Context, runID, reason string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Marking run as failed", "RunID", runID, "Reason", reason)

	affected, err := a.RunRepo.UpdateStatus(ctx, runID, models.RunStatusFailed, nil, &reason)
	if err != nil {
		logger.Error("Failed to mark run as failed", "RunID", runID, "error", err)
		return err
	}
	if affected == 0 {
		logger.Info("Run already terminal, skipping failure", "RunID", runID)
		return nil
	}
	if err := a.Publisher.PublishRunStatus(ctx, runID, models.RunStatusFailed, &reason); err != nil {
		logger.Warn("Failed to publish run status", "RunID", runID, "error", err)
	}
	return nil
}
