package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkDirPrefix prefixes every run work directory name.
const WorkDirPrefix = "run-"

// CreateWorkDir creates stagingDir/run-<runID>. An existing directory with the
// same name is an error so two runs never share intermediates.
func CreateWorkDir(stagingDir, runID string) (string, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	runID = strings.TrimSpace(runID)
	if stagingDir == "" || runID == "" {
		return "", fmt.Errorf("staging dir and run id are required")
	}
	if strings.ContainsAny(runID, `/\`) {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	dir := filepath.Join(stagingDir, WorkDirPrefix+runID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return dir, nil
}
