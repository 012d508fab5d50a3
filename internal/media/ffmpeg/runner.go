package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external command and returns an error carrying
// the tool's diagnostic output on failure.
type CommandRunner func(ctx context.Context, name string, args ...string) error

const maxDiagnosticBytes = 2048

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(strings.TrimSpace(string(output)), maxDiagnosticBytes))
	}
	return nil
}

// tail keeps the last n bytes of s; ffmpeg prints the useful error last.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
