package history

import "time"

// Status is the final outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is one row of the ledger.
type Run struct {
	ID                 int64
	RunID              string
	VideoPath          string
	Status             Status
	ErrorClass         string
	ErrorMessage       string
	OutputVideo        string
	SubtitlePath       string
	AudioCacheHit      bool
	TranscriptCacheHit bool
	CueCount           int
	StartedAt          time.Time
	FinishedAt         time.Time
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
