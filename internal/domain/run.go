package domain

import "time"

// RunStatus enumerates the outcomes of one incremental pass.
type RunStatus string

const (
	RunStatusNoop      RunStatus = "noop"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// RunReport summarizes a single incremental pass for the ledger and notifications.
type RunReport struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         RunStatus
	SourceRows     int
	AlreadyLabeled int
	DeltaRows      int
	LabeledRows    int
	LoadedRows     int64
	Artifact       string
	Error          string
}

// Duration is the wall time of the pass.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
