package model

import "time"

// RunStatus represents the outcome of a reconciliation run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial" // at least one source failed
	RunStatusFailed   RunStatus = "failed"
)

// Run is an archived reconciliation run.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Sources   []string  `json:"sources"`
	Report    *Report   `json:"report,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusFor derives a run status from its report.
func StatusFor(r *Report) RunStatus {
	if r == nil || len(r.Sources) == 0 {
		return RunStatusFailed
	}
	failed := 0
	for _, s := range r.Sources {
		if s.Failed() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return RunStatusComplete
	case failed == len(r.Sources):
		return RunStatusFailed
	default:
		return RunStatusPartial
	}
}
