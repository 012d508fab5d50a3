package recognition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Status is a job's position in the recognition state machine.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed-out"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Job is a submitted recognition job. It is only mutated by Client.Wait.
type Job struct {
	ID          string
	Status      Status
	SubmittedAt time.Time
	Polls       int
	// Detail carries the service's last status text, useful when the job fails.
	Detail string
}

// Options are passed to the service unmodified.
type Options struct {
	EnableWords               bool
	PunctuationPrediction     bool
	SemanticSentenceDetection bool
	InverseTextNormalization  bool
	DisfluencyRemoval         bool
	MaxSingleSegment          time.Duration
	// LanguageHint is a BCP 47 tag; empty leaves the service default.
	LanguageHint string
}

// CacheVariant names the transcript these options produce: the lowercased
// language hint ("auto" when unset) and a short digest of the other settings.
// Transcripts stored under different variants are never interchangeable.
func (o Options) CacheVariant() string {
	lang := strings.ToLower(strings.TrimSpace(o.LanguageHint))
	if lang == "" {
		lang = "auto"
	}
	settings := fmt.Sprintf("words=%t;punctuation=%t;semantic=%t;itn=%t;disfluency=%t;max_segment_ms=%d",
		o.EnableWords,
		o.PunctuationPrediction,
		o.SemanticSentenceDetection,
		o.InverseTextNormalization,
		o.DisfluencyRemoval,
		o.MaxSingleSegment.Milliseconds(),
	)
	sum := sha256.Sum256([]byte(settings))
	return lang + "-" + hex.EncodeToString(sum[:4])
}

// SubmitRequest is what the API receives for a new job.
type SubmitRequest struct {
	AudioURL string
	Options  Options
}

// State is the coarse job state reported by a status query.
type State int

const (
	StateRunning State = iota
	StateSucceeded
	StateFailed
)

// QueryResult is one status query response.
type QueryResult struct {
	State  State
	Detail string
}

// API is the remote recognition service.
type API interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Query(ctx context.Context, jobID string) (QueryResult, error)
	Result(ctx context.Context, jobID string) (Transcript, error)
}

// Transcript is the ordered list of recognized segments. Times are integer
// multiples of Unit.
type Transcript struct {
	Unit     time.Duration `json:"unit"`
	Segments []Segment     `json:"segments"`
}

// Segment is one recognized sentence.
type Segment struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Text  string `json:"text"`
	Words []Word `json:"words,omitempty"`
}

// Word is an optional per-word timing inside a segment.
type Word struct {
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Text  string `json:"text"`
}

// Clock abstracts time for the wait loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
