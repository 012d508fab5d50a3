package recognition

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"hardsub/internal/logging"
	"hardsub/internal/services"
)

// fakeClock advances instantly whenever After is called and records every
// requested sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	onWait func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	now := c.now
	onWait := c.onWait
	c.mu.Unlock()
	if onWait != nil {
		onWait()
	}
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

type queryStep struct {
	result QueryResult
	err    error
}

type fakeAPI struct {
	submitID    string
	submitErr   error
	submitted   []SubmitRequest
	steps       []queryStep
	queries     int
	resultCalls int
	resultAt    int
	transcript  Transcript
	resultErr   error
}

func (f *fakeAPI) Submit(_ context.Context, req SubmitRequest) (string, error) {
	f.submitted = append(f.submitted, req)
	return f.submitID, f.submitErr
}

func (f *fakeAPI) Query(_ context.Context, _ string) (QueryResult, error) {
	f.queries++
	if len(f.steps) == 0 {
		return QueryResult{State: StateRunning, Detail: "RUNNING"}, nil
	}
	step := f.steps[0]
	f.steps = f.steps[1:]
	return step.result, step.err
}

func (f *fakeAPI) Result(_ context.Context, _ string) (Transcript, error) {
	f.resultCalls++
	f.resultAt = f.queries
	return f.transcript, f.resultErr
}

func running() queryStep {
	return queryStep{result: QueryResult{State: StateRunning, Detail: "RUNNING"}}
}

func newTestClient(api API, clock Clock, maxFailures int) *Client {
	return NewClient(api, Config{PollInterval: 10 * time.Second, MaxPollFailures: maxFailures}, logging.NewNop(), WithClock(clock))
}

func TestSubmitPassesOptionsThrough(t *testing.T) {
	api := &fakeAPI{submitID: "task-1"}
	client := newTestClient(api, newFakeClock(), 3)
	opts := Options{EnableWords: true, MaxSingleSegment: 15 * time.Second, LanguageHint: "en-US"}

	job, err := client.Submit(context.Background(), "https://audio", opts)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.ID != "task-1" || job.Status != StatusSubmitted {
		t.Fatalf("unexpected job %+v", job)
	}
	if len(api.submitted) != 1 || api.submitted[0].Options != opts || api.submitted[0].AudioURL != "https://audio" {
		t.Fatalf("unexpected submission %+v", api.submitted)
	}
}

func TestSubmitFailureIsFatal(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeAPI
	}{
		{name: "rejected", api: &fakeAPI{submitErr: errors.New("InvalidAppKey")}},
		{name: "empty id", api: &fakeAPI{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestClient(tt.api, newFakeClock(), 3).Submit(context.Background(), "https://audio", Options{})
			if !errors.Is(err, services.ErrRecognitionSubmit) {
				t.Fatalf("expected ErrRecognitionSubmit, got %v", err)
			}
			if services.Retryable(err) {
				t.Fatal("submit failures must not be retryable")
			}
			if len(tt.api.submitted) != 1 {
				t.Fatalf("expected exactly one attempt, got %d", len(tt.api.submitted))
			}
		})
	}
}

func TestWaitSucceedsOnKthPollThenFetchesOnce(t *testing.T) {
	api := &fakeAPI{
		submitID:   "task-1",
		steps:      []queryStep{running(), running(), {result: QueryResult{State: StateSucceeded, Detail: "SUCCESS"}}},
		transcript: Transcript{Unit: time.Millisecond, Segments: []Segment{{Start: 0, End: 1000, Text: "hi"}}},
	}
	clock := newFakeClock()
	client := newTestClient(api, clock, 3)
	ctx := context.Background()

	job, err := client.Submit(ctx, "https://audio", Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := client.Wait(ctx, job, 10*time.Minute); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if job.Status != StatusSucceeded || job.Polls != 3 {
		t.Fatalf("unexpected job %+v", job)
	}
	for _, d := range clock.sleeps {
		if d < 10*time.Second {
			t.Fatalf("polled faster than interval: %v", clock.sleeps)
		}
	}
	if api.resultCalls != 0 {
		t.Fatal("result fetched before FetchResult")
	}
	transcript, err := client.FetchResult(ctx, job)
	if err != nil {
		t.Fatalf("FetchResult: %v", err)
	}
	if api.resultCalls != 1 || api.resultAt != 3 {
		t.Fatalf("expected one fetch after poll 3, got %d calls after poll %d", api.resultCalls, api.resultAt)
	}
	if len(transcript.Segments) != 1 {
		t.Fatalf("unexpected transcript %+v", transcript)
	}
}

func TestWaitTimesOut(t *testing.T) {
	api := &fakeAPI{submitID: "task-1"}
	clock := newFakeClock()
	client := newTestClient(api, clock, 3)
	ctx := context.Background()

	job, _ := client.Submit(ctx, "https://audio", Options{})
	err := client.Wait(ctx, job, 35*time.Second)
	if !errors.Is(err, services.ErrRecognitionTimeout) {
		t.Fatalf("expected ErrRecognitionTimeout, got %v", err)
	}
	if !services.Retryable(err) {
		t.Fatal("timeouts should be retryable")
	}
	if job.Status != StatusTimedOut {
		t.Fatalf("expected timed-out, got %s", job.Status)
	}
	if api.queries != 3 {
		t.Fatalf("expected 3 polls within 35s, got %d", api.queries)
	}
	if elapsed := clock.Now().Sub(job.SubmittedAt); elapsed > 35*time.Second {
		t.Fatalf("waited past the limit: %v", elapsed)
	}
	if _, err := client.FetchResult(ctx, job); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected FetchResult to refuse a timed-out job, got %v", err)
	}
}

func TestWaitToleratesTransientFailures(t *testing.T) {
	blip := queryStep{err: errors.New("connection reset")}
	api := &fakeAPI{
		submitID: "task-1",
		steps:    []queryStep{blip, blip, running(), blip, {result: QueryResult{State: StateSucceeded}}},
	}
	client := newTestClient(api, newFakeClock(), 2)
	ctx := context.Background()
	job, _ := client.Submit(ctx, "https://audio", Options{})

	if err := client.Wait(ctx, job, time.Hour); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if job.Status != StatusSucceeded {
		t.Fatalf("unexpected status %s", job.Status)
	}
}

func TestWaitGivesUpAfterConsecutiveFailures(t *testing.T) {
	blip := queryStep{err: errors.New("connection reset")}
	api := &fakeAPI{submitID: "task-1", steps: []queryStep{blip, blip, blip}}
	client := newTestClient(api, newFakeClock(), 2)
	ctx := context.Background()
	job, _ := client.Submit(ctx, "https://audio", Options{})

	err := client.Wait(ctx, job, time.Hour)
	if !errors.Is(err, services.ErrRecognitionTransient) {
		t.Fatalf("expected ErrRecognitionTransient, got %v", err)
	}
	if api.queries != 3 {
		t.Fatalf("expected 3 attempts, got %d", api.queries)
	}
	if job.Status.Terminal() {
		t.Fatalf("transient give-up should not invent a terminal job status, got %s", job.Status)
	}
}

func TestWaitReportsJobFailure(t *testing.T) {
	api := &fakeAPI{
		submitID: "task-1",
		steps:    []queryStep{running(), {result: QueryResult{State: StateFailed, Detail: "FILE_DOWNLOAD_FAILED"}}},
	}
	client := newTestClient(api, newFakeClock(), 3)
	ctx := context.Background()
	job, _ := client.Submit(ctx, "https://audio", Options{})

	err := client.Wait(ctx, job, time.Hour)
	if !errors.Is(err, services.ErrRecognitionJobFailed) {
		t.Fatalf("expected ErrRecognitionJobFailed, got %v", err)
	}
	if job.Status != StatusFailed || job.Detail != "FILE_DOWNLOAD_FAILED" {
		t.Fatalf("unexpected job %+v", job)
	}
	if err := client.Wait(ctx, job, time.Hour); !errors.Is(err, services.ErrRecognitionJobFailed) {
		t.Fatalf("terminal job should stay failed, got %v", err)
	}
	if api.queries != 2 {
		t.Fatalf("terminal job should not be polled again, got %d queries", api.queries)
	}
}

func TestWaitChecksCancellationEachIteration(t *testing.T) {
	api := &fakeAPI{submitID: "task-1"}
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.onWait = func() {
		if len(clock.sleeps) == 2 {
			cancel()
		}
	}
	client := newTestClient(api, clock, 3)
	job, _ := client.Submit(ctx, "https://audio", Options{})

	err := client.Wait(ctx, job, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if api.queries > 2 {
		t.Fatalf("expected polling to stop after cancellation, got %d queries", api.queries)
	}
}

func TestFetchResultFailureIsRetryable(t *testing.T) {
	api := &fakeAPI{resultErr: errors.New("503")}
	client := newTestClient(api, newFakeClock(), 3)
	job := &Job{ID: "task-1", Status: StatusSucceeded}
	_, err := client.FetchResult(context.Background(), job)
	if !errors.Is(err, services.ErrRecognitionTransient) {
		t.Fatalf("expected ErrRecognitionTransient, got %v", err)
	}
}

func TestMaxWaitFor(t *testing.T) {
	bounds := WaitBounds{Default: 5 * time.Minute, Min: 2 * time.Minute, Max: 10 * time.Minute}
	tests := []struct {
		media time.Duration
		want  time.Duration
	}{
		{0, 5 * time.Minute},
		{10 * time.Second, 2 * time.Minute},
		{60 * time.Second, 4 * time.Minute},
		{time.Hour, 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := MaxWaitFor(tt.media, bounds); got != tt.want {
			t.Errorf("MaxWaitFor(%v) = %v, want %v", tt.media, got, tt.want)
		}
	}
}

func TestCanonicalLanguage(t *testing.T) {
	tests := map[string]string{
		"":      "",
		"en":    "en-US",
		"en-GB": "en-GB",
		"zh":    "zh-CN",
		"zh_tw": "zh-TW",
		"ja":    "ja-JP",
	}
	for in, want := range tests {
		got, err := CanonicalLanguage(in)
		if err != nil {
			t.Fatalf("CanonicalLanguage(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("CanonicalLanguage(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := CanonicalLanguage("not a tag!"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTranscriptCodec(t *testing.T) {
	in := Transcript{Unit: time.Millisecond, Segments: []Segment{{Start: 0, End: 2500, Text: "你好", Words: []Word{{Start: 0, End: 1200, Text: "你"}}}}}
	data, err := EncodeTranscript(in)
	if err != nil {
		t.Fatalf("EncodeTranscript: %v", err)
	}
	out, err := DecodeTranscript(data)
	if err != nil {
		t.Fatalf("DecodeTranscript: %v", err)
	}
	if out.Unit != in.Unit || len(out.Segments) != 1 || out.Segments[0].Words[0].Text != "你" {
		t.Fatalf("unexpected transcript %+v", out)
	}
	if _, err := DecodeTranscript([]byte(`{"version":99,"unit":1000000}`)); err == nil {
		t.Fatal("expected version mismatch error")
	}
}

func TestCacheVariant(t *testing.T) {
	base := Options{PunctuationPrediction: true, LanguageHint: "zh-CN"}
	got := base.CacheVariant()
	if !strings.HasPrefix(got, "zh-cn-") || len(got) != len("zh-cn-")+8 {
		t.Fatalf("CacheVariant = %q", got)
	}
	if again := base.CacheVariant(); again != got {
		t.Fatalf("CacheVariant not stable: %q then %q", got, again)
	}

	other := base
	other.LanguageHint = "en-US"
	if v := other.CacheVariant(); v == got || !strings.HasPrefix(v, "en-us-") {
		t.Fatalf("language change gave %q (base %q)", v, got)
	}
	other = base
	other.EnableWords = true
	if v := other.CacheVariant(); v == got {
		t.Fatalf("settings change kept variant %q", v)
	}
	if v := (Options{}).CacheVariant(); !strings.HasPrefix(v, "auto-") {
		t.Fatalf("unset language gave %q", v)
	}
}
