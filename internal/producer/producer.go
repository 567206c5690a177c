package producer

import (
	"encoding/json"
	"time"
)

// TaskQueueName is the name of the Temporal task queue used for search run workflows.
const TaskQueueName = "HIRELOOP_SEARCH"

// SearchWorkflowIDPrefix is the prefix used for search run workflow IDs.
const SearchWorkflowIDPrefix = "hireloop-search-"

// DefaultActivityTimeout is the default timeout duration for Temporal activities in search workflows.
const DefaultActivityTimeout = 5 * time.Minute

// SearchParams defines the input for search run workflows.
type SearchParams struct {
	RunID    string
	SearchID string
	Query    string
	Params   json.RawMessage
}

// DispatchResult holds the engine's acknowledgement, passed to the
// completion-await activity.
type DispatchResult struct {
	RunID    string
	EngineID string
}
