package domain

import "time"

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
	// RunStatusSkipped is reported in summaries only; no Run row carries it.
	RunStatusSkipped RunStatus = "skipped"
)

// Run is the audit record of one pipeline execution against one Source.
type Run struct {
	ID           string     `db:"id" json:"id"`
	SourceID     string     `db:"source_id" json:"source_id"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	FinishedAt   *time.Time `db:"finished_at" json:"finished_at"`
	Status       RunStatus  `db:"status" json:"status"`
	ItemsFound   int        `db:"items_found" json:"items_found"`
	ItemsCreated int        `db:"items_created" json:"items_created"`
	ItemsUpdated int        `db:"items_updated" json:"items_updated"`
	ItemsClosed  int        `db:"items_closed" json:"items_closed"`
	ItemsDeleted int        `db:"items_deleted" json:"items_deleted"`
	ErrorMessage *string    `db:"error_message" json:"error_message"`
}

type RunFilter struct {
	SourceID string
	Since    time.Time
	Limit    int
}

// Tally holds the counters produced by one Source pass.
type Tally struct {
	Found   int
	Created int
	Updated int
	Closed  int
	Deleted int
}

// RunSummary is returned to the caller for every targeted Source.
type RunSummary struct {
	SourceID     string    `json:"source_id"`
	SourceName   string    `json:"source_name"`
	RunID        string    `json:"run_id,omitempty"`
	Status       RunStatus `json:"status"`
	ItemsFound   int       `json:"items_found"`
	ItemsCreated int       `json:"items_created"`
	ItemsUpdated int       `json:"items_updated"`
	ItemsClosed  int       `json:"items_closed"`
	Error        *string   `json:"error"`
}
