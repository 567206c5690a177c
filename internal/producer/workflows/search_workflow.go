package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/hireloop/hireloop-api/internal/producer"
	"github.com/hireloop/hireloop-api/internal/producer/activities"
)

func SearchWorkflow(ctx workflow.Context, params producer.SearchParams) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: producer.DefaultActivityTimeout,
		HeartbeatTimeout:    30 * time.Second, // Activities can report progress.
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	logger := workflow.GetLogger(ctx)
	logger.Info("Starting search workflow", "RunID", params.RunID, "SearchID", params.SearchID)

	// Create an instance of activities struct.
	// The actual implementation is on the worker; this is just a proxy.
	var a *activities.Activities

	// Step 1: Move the run to 'running'.
	err := workflow.ExecuteActivity(ctx, a.MarkRunRunningActivity, params.RunID).Get(ctx, nil)
	if err != nil {
		logger.Error("Failed to mark run as running.", "error", err)
		return err
	}

	// Step 2: Hand the query to the engine.
	var dispatched producer.DispatchResult
	err = workflow.ExecuteActivity(ctx, a.DispatchSearchActivity, params).Get(ctx, &dispatched)
	if err != nil {
		msg := fmt.Sprintf("Failed to dispatch search: %v", err)
		workflow.ExecuteActivity(ctx, a.FailRunActivity, params.RunID, msg).Get(ctx, nil)
		logger.Error("Search dispatch failed.", "error", err)
		return err
	}

	// Step 3: Wait for the engine's callbacks to finish the run.
	var finalStatus string
	err = workflow.ExecuteActivity(ctx, a.AwaitCompletionActivity, params.RunID).Get(ctx, &finalStatus)
	if err != nil {
		msg := fmt.Sprintf("Search did not complete in time: %v", err)
		workflow.ExecuteActivity(ctx, a.FailRunActivity, params.RunID, msg).Get(ctx, nil)
		logger.Error("Search completion wait failed.", "error", err)
		return err
	}

	logger.Info("Search workflow completed.", "RunID", params.RunID, "Status", finalStatus)
	return nil
}
