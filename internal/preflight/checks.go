package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"hardsub/internal/config"
	"hardsub/internal/deps"
	"hardsub/internal/textutil"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, need %s", textutil.FormatBytes(int64(free)), textutil.FormatBytes(int64(minBytes)))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free", textutil.FormatBytes(int64(free)))}
}

// CheckCredentials verifies that the cloud account settings are present.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Cloud credentials"
	if err := cfg.RequireCloudCredentials(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("region %s", cfg.Aliyun.Region)}
}

// CheckBucket verifies the bucket is reachable with a 10-second timeout and
// a single attempt.
func CheckBucket(ctx context.Context, bucket string, pinger Pinger) Result {
	const name = "Object storage"
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pinger.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("bucket %s reachable", bucket)}
}

// CheckSystemDeps evaluates the media binaries for the given config. Both the
// burn and doctor commands use this to share the requirements list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, deps.MediaRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}

// FromDependency converts a dependency status into a preflight result.
func FromDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available || status.Optional}
	switch {
	case status.Available && status.Version != "":
		result.Detail = status.Version
	case status.Available:
		result.Detail = status.Path
	default:
		result.Detail = status.Detail
	}
	return result
}

// summarizeNetworkError produces a human-readable summary for reachability failures.
func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (object storage unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (object storage unreachable)"
	}
	return err.Error()
}
