package services

import "context"

type contextKey int

const (
	runIDKey contextKey = iota
	stageKey
	jobIDKey
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}

// WithRunID tags ctx with the pipeline run identifier. Empty ids are ignored.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, runIDKey) }

// WithStage tags ctx with the current pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage stored by WithStage.
func StageFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, stageKey) }

// WithJobID tags ctx with the remote recognition job being tracked.
func WithJobID(ctx context.Context, id string) context.Context {
	return withString(ctx, jobIDKey, id)
}

// JobIDFromContext returns the job identifier stored by WithJobID.
func JobIDFromContext(ctx context.Context) (string, bool) { return stringFrom(ctx, jobIDKey) }
