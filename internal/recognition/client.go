package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hardsub/internal/logging"
	"hardsub/internal/services"
)

const stageName = "recognize"

// Config bounds the polling loop.
type Config struct {
	PollInterval time.Duration
	// MaxPollFailures is how many consecutive failed status queries are
	// tolerated; one more aborts the wait.
	MaxPollFailures int
}

// Client submits and tracks recognition jobs.
type Client struct {
	api    API
	cfg    Config
	clock  Clock
	logger *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithClock replaces the wall clock used by Wait.
func WithClock(clock Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewClient builds a client over api.
func NewClient(api API, cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.MaxPollFailures < 0 {
		cfg.MaxPollFailures = 0
	}
	c := &Client{
		api:    api,
		cfg:    cfg,
		clock:  realClock{},
		logger: logging.NewComponentLogger(logger, "recognition"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts a job for audioURL. Failures are not retried.
func (c *Client) Submit(ctx context.Context, audioURL string, opts Options) (*Job, error) {
	if strings.TrimSpace(audioURL) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "submit", "audio URL is required", nil)
	}
	id, err := c.api.Submit(ctx, SubmitRequest{AudioURL: audioURL, Options: opts})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrRecognitionSubmit, stageName, "submit", "Recognition service rejected the job", err)
	}
	if strings.TrimSpace(id) == "" {
		return nil, services.Wrap(services.ErrRecognitionSubmit, stageName, "submit", "Recognition service returned an empty job id", nil)
	}
	job := &Job{ID: id, Status: StatusSubmitted, SubmittedAt: c.clock.Now()}
	logging.WithContext(ctx, c.logger).Info("recognition job submitted",
		logging.String(logging.FieldEventType, "recognition_submitted"),
		logging.String(logging.FieldJobID, id),
		logging.String("language", opts.LanguageHint),
	)
	return job, nil
}

// Wait polls job until it reaches a terminal status or maxWait elapses since
// submission. It sleeps one poll interval before every query and never polls
// faster. A wait that would end past maxWait marks the job timed-out.
func (c *Client) Wait(ctx context.Context, job *Job, maxWait time.Duration) error {
	if job == nil {
		return services.Wrap(services.ErrValidation, stageName, "wait", "job is required", nil)
	}
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, c.logger)
	start := job.SubmittedAt
	if start.IsZero() {
		start = c.clock.Now()
	}
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch job.Status {
		case StatusSucceeded:
			return nil
		case StatusFailed:
			return jobFailed(job)
		case StatusTimedOut:
			return timedOut(job, maxWait)
		}

		if c.clock.Now().Sub(start)+c.cfg.PollInterval > maxWait {
			job.Status = StatusTimedOut
			logging.WarnWithContext(logger, "recognition job exceeded maximum wait", "recognition_timeout",
				logging.Duration("max_wait", maxWait),
				logging.Int("polls", job.Polls),
				logging.String(logging.FieldErrorHint, "retry later or raise recognition.max_wait_seconds"),
				logging.String(logging.FieldImpact, "no subtitles were produced"),
			)
			return timedOut(job, maxWait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.cfg.PollInterval):
		}

		result, err := c.api.Query(ctx, job.ID)
		job.Polls++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failures++
			if failures > c.cfg.MaxPollFailures {
				return services.Wrap(services.ErrRecognitionTransient, stageName, "poll",
					fmt.Sprintf("status query failed %d times in a row", failures), err)
			}
			logging.WarnWithContext(logger, "recognition status query failed; retrying", "recognition_poll_retry",
				logging.Error(err),
				logging.Int("consecutive_failures", failures),
				logging.String(logging.FieldErrorHint, "check network connectivity to the recognition endpoint"),
				logging.String(logging.FieldImpact, "job status checked again next interval"),
			)
			continue
		}
		failures = 0
		job.Detail = result.Detail

		switch result.State {
		case StateSucceeded:
			job.Status = StatusSucceeded
			logger.Info("recognition job succeeded",
				logging.String(logging.FieldEventType, "recognition_succeeded"),
				logging.Int("polls", job.Polls),
				logging.Duration("elapsed", c.clock.Now().Sub(start)),
			)
			return nil
		case StateFailed:
			job.Status = StatusFailed
			return jobFailed(job)
		default:
			if job.Status == StatusSubmitted {
				logger.Debug("recognition job running", logging.String("job_status", result.Detail))
			}
			job.Status = StatusRunning
		}
	}
}

// FetchResult returns the transcript of a succeeded job.
func (c *Client) FetchResult(ctx context.Context, job *Job) (Transcript, error) {
	if job == nil || job.Status != StatusSucceeded {
		status := Status("")
		if job != nil {
			status = job.Status
		}
		return Transcript{}, services.Wrap(services.ErrValidation, stageName, "fetch result",
			fmt.Sprintf("job is %q, results are only available after success", status), nil)
	}
	transcript, err := c.api.Result(ctx, job.ID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Transcript{}, err
		}
		return Transcript{}, services.Wrap(services.ErrRecognitionTransient, stageName, "fetch result", "Unable to download recognition result", err)
	}
	if transcript.Unit <= 0 {
		return Transcript{}, services.Wrap(services.ErrConversion, stageName, "fetch result", "transcript has no time unit", nil)
	}
	return transcript, nil
}

func jobFailed(job *Job) error {
	detail := strings.TrimSpace(job.Detail)
	if detail == "" {
		detail = "unknown failure"
	}
	return services.Wrap(services.ErrRecognitionJobFailed, stageName, "poll", fmt.Sprintf("job %s failed: %s", job.ID, detail), nil)
}

func timedOut(job *Job, maxWait time.Duration) error {
	return services.Wrap(services.ErrRecognitionTimeout, stageName, "poll", fmt.Sprintf("job %s not finished within %s", job.ID, maxWait), nil)
}
