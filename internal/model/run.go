package model

import "time"

// RunStatus is the lifecycle state of a comparison run in the ledger.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusRejected RunStatus = "rejected" // user error: no or too few products
	RunStatusFailed   RunStatus = "failed"
)

// Run is one ledger row. It records observability data only; product
// data is never persisted.
type Run struct {
	ID            string     `json:"id"`
	Query         string     `json:"query"`
	Status        RunStatus  `json:"status"`
	ProductType   Category   `json:"product_type,omitempty"`
	ProductsFound int        `json:"products_found"`
	URLsFetched   int        `json:"urls_fetched"`
	URLsFailed    int        `json:"urls_failed"`
	DurationMs    int64      `json:"duration_ms"`
	Error         string     `json:"error,omitempty"`
	Phases        []RunPhase `json:"phases,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// PhaseStatus is the outcome of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// RunPhase is the timing record of one pipeline phase.
type RunPhase struct {
	ID         string      `json:"id"`
	RunID      string      `json:"run_id"`
	Name       string      `json:"name"`
	Status     PhaseStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
}
