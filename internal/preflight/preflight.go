package preflight

import (
	"context"

	"hardsub/internal/config"
)

// DefaultMinFreeBytes is the free space required in the staging directory.
const DefaultMinFreeBytes uint64 = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Pinger confirms that remote object storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune RunAll. A nil Bucket skips the storage check.
type Options struct {
	Bucket       Pinger
	MinFreeBytes uint64
}

// RunAll executes every preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, FromDependency(status))
	}

	results = append(results,
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	)
	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}

	minFree := opts.MinFreeBytes
	if minFree == 0 {
		minFree = DefaultMinFreeBytes
	}
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, minFree))

	credentials := CheckCredentials(cfg)
	results = append(results, credentials)
	if opts.Bucket != nil && credentials.Passed {
		results = append(results, CheckBucket(ctx, cfg.ObjectStorage.Bucket, opts.Bucket))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
