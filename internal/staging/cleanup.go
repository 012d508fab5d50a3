package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hardsub/internal/logging"
)

// DirInfo describes a run work directory.
type DirInfo struct {
	Name    string
	Path    string
	RunID   string
	ModTime time.Time
	Size    int64
}

// StaleAt reports whether the directory was last touched before now-maxAge.
// A non-positive maxAge never marks anything stale.
func (d DirInfo) StaleAt(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && d.ModTime.Before(now.Add(-maxAge))
}

// CleanStaleResult lists the directories removed by CleanStale and the ones
// that could not be removed.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes run work directories older than maxAge. Other entries
// in the staging directory, including the lock directory, are left alone.
// Callers hold no lock, so maxAge must exceed the longest plausible run.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	var result CleanStaleResult
	if maxAge <= 0 {
		return result
	}
	logger = logging.NewComponentLogger(logger, "staging")

	now := time.Now()
	err := walkWorkDirs(stagingDir, func(dir DirInfo) bool {
		if ctx.Err() != nil {
			return false
		}
		if !dir.StaleAt(now, maxAge) {
			return true
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale work directory", "stale_cleanup_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			return true
		}
		result.Removed = append(result.Removed, dir.Path)
		logger.Info("removed stale work directory",
			logging.String(logging.FieldEventType, "stale_cleanup"),
			logging.String("path", dir.Path),
			logging.Duration("age", now.Sub(dir.ModTime)),
		)
		return true
	})
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
	}
	return result
}

// ListWorkDirs returns the run work directories currently present with
// their sizes. A missing staging directory yields no entries.
func ListWorkDirs(stagingDir string) ([]DirInfo, error) {
	var dirs []DirInfo
	err := walkWorkDirs(stagingDir, func(dir DirInfo) bool {
		dir.Size = dirSize(dir.Path)
		dirs = append(dirs, dir)
		return true
	})
	return dirs, err
}

// walkWorkDirs calls fn for each run-* directory until fn returns false.
func walkWorkDirs(stagingDir string, fn func(DirInfo) bool) error {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, WorkDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dir := DirInfo{
			Name:    name,
			Path:    filepath.Join(stagingDir, name),
			RunID:   strings.TrimPrefix(name, WorkDirPrefix),
			ModTime: info.ModTime(),
		}
		if !fn(dir) {
			return nil
		}
	}
	return nil
}

// dirSize sums regular file sizes below path, skipping unreadable entries.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
