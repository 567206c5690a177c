package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/hireloop/hireloop-api/internal/models"
)

type RunRepository interface {
	CreateRun(ctx context.Context, run models.Run) (models.Run, error)
	GetRun(ctx context.Context, runID string) (models.Run, error)
	// UpdateStatus applies a producer status report. The monotonic guard
	// lives in the SQL: a run already completed or failed is never moved
	// again, and the update reports how many rows it touched.
	UpdateStatus(ctx context.Context, runID string, status models.RunStatus, stats json.RawMessage, stopReason *string) (int64, error)
	RevokeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

type runRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateRun(ctx context.Context, run models.Run) (models.Run, error) {
	query := `
		INSERT INTO runs (run_id, query, params, status, stats, search_id, view_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		run.RunID,
		run.Query,
		run.Params,
		run.Status,
		run.Stats,
		run.SearchID,
		run.ViewToken,
		run.TokenExpiresAt,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
	return run, err
}

func (r *runRepository) GetRun(ctx context.Context, runID string) (models.Run, error) {
	query := `
		SELECT run_id, query, params, status, stats, stop_reason, search_id, view_token, token_expires_at, created_at, updated_at
		FROM runs
		WHERE run_id = $1
	`
	var (
		run        models.Run
		stopReason sql.NullString
		searchID   sql.NullString
		viewToken  sql.NullString
		tokenExp   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&run.RunID,
		&run.Query,
		&run.Params,
		&run.Status,
		&run.Stats,
		&stopReason,
		&searchID,
		&viewToken,
		&tokenExp,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return run, ErrNotFound
		}
		return run, err
	}
	if stopReason.Valid {
		run.StopReason = &stopReason.String
	}
	if searchID.Valid {
		run.SearchID = &searchID.String
	}
	if viewToken.Valid {
		run.ViewToken = &viewToken.String
	}
	if tokenExp.Valid {
		run.TokenExpiresAt = &tokenExp.Time
	}
	return run, nil
}

func (r *runRepository) UpdateStatus(ctx context.Context, runID string, status models.RunStatus, stats json.RawMessage, stopReason *string) (int64, error) {
	// The predicate mirrors models.CanTransition: pending may move anywhere,
	// running may only stay running or settle, terminal rows never change.
	query := `
		UPDATE runs
		SET status      = $2,
		    stats       = COALESCE($3, stats),
		    stop_reason = COALESCE($4, stop_reason),
		    updated_at  = NOW()
		WHERE run_id = $1
		  AND (
		        status = 'pending'
		        OR (status = 'running' AND $2 IN ('running', 'completed', 'failed'))
		      )
	`
	var statsArg interface{}
	if len(stats) > 0 {
		statsArg = []byte(stats)
	}
	res, err := r.db.ExecContext(ctx, query, runID, status, statsArg, stopReason)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeExpiredTokens clears view tokens whose window has passed, so a
// leaked credential cannot outlive its expiry at the store either.
func (r *runRepository) RevokeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE runs
		SET view_token = NULL
		WHERE view_token IS NOT NULL
		  AND token_expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
