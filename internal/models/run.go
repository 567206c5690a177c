package models

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of a search run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsValidRunStatus reports whether s is one of the known run states.
func IsValidRunStatus(s RunStatus) bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether a run in state s will never change again.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// CanTransition reports whether a run may move from one status to another.
// Status is monotonic: pending -> running -> completed|failed, and nothing
// leaves a terminal state. A no-op transition to the same state is allowed
// so duplicate producer reports stay idempotent.
func CanTransition(from, to RunStatus) bool {
	if !IsValidRunStatus(from) || !IsValidRunStatus(to) {
		return false
	}
	if from == to {
		return !from.IsTerminal()
	}
	switch from {
	case RunStatusPending:
		return true
	case RunStatusRunning:
		return to == RunStatusCompleted || to == RunStatusFailed
	default:
		return false
	}
}

// Run is one search execution. Rows are created by the run-start operation
// and mutated only by the producer until a terminal status is reached.
type Run struct {
	RunID          string          `json:"run_id" db:"run_id"`
	Query          string          `json:"query" db:"query"`
	Params         json.RawMessage `json:"params" db:"params"`
	Status         RunStatus       `json:"status" db:"status"`
	Stats          json.RawMessage `json:"stats" db:"stats"`
	StopReason     *string         `json:"stop_reason,omitempty" db:"stop_reason"`
	SearchID       *string         `json:"search_id,omitempty" db:"search_id"`
	ViewToken      *string         `json:"-" db:"view_token"`
	TokenExpiresAt *time.Time      `json:"-" db:"token_expires_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Search is the reusable query+location definition a run was started from.
type Search struct {
	SearchID  string          `json:"search_id" db:"search_id"`
	Query     string          `json:"query" db:"query"`
	Location  string          `json:"location" db:"location"`
	Params    json.RawMessage `json:"params" db:"params"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
