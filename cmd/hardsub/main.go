package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hardsub/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps command errors to process exit codes. Configuration load
// failures are reported before any pipeline error class exists.
func exitCode(err error) int {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return services.ExitConfiguration
	}
	return services.ExitCode(err)
}
