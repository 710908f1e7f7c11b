package scraperjob

import "time"

type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	// StatusPartial means the primary artifact (file output) was written but
	// a secondary write (database) failed. The run is usable, not clean.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

type ExecutionContext string

const (
	ContextScheduled ExecutionContext = "scheduled"
	ContextManual    ExecutionContext = "manual"
)

// Job is one audit record for a pipeline run. Records are append-only:
// a job is written once with its final status and never mutated.
type Job struct {
	JobType              string
	Status               Status
	RowsProcessed        int
	RowsInserted         int
	RowsUpdated          int
	RowsFailed           int
	ConfederationCounts  map[string]int
	SourceURLs           []string
	OutputFiles          []string
	ErrorMessage         string
	ErrorDetails         map[string]any
	ExecutionTimeSeconds float64
	StartedAt            time.Time
	CompletedAt          *time.Time
	InputHash            string
	OutputHash           string
	ExecutionContext     ExecutionContext
	Environment          string
	RunID                string
	Notes                string
}
