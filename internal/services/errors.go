package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure class markers. Every error that leaves a pipeline component carries
// exactly one of these so the orchestrator and CLI can classify it.
var (
	ErrConfiguration         = errors.New("configuration error")
	ErrValidation            = errors.New("validation error")
	ErrFingerprint           = errors.New("fingerprint error")
	ErrExtraction            = errors.New("audio extraction error")
	ErrUpload                = errors.New("object storage error")
	ErrRecognitionSubmit     = errors.New("recognition submit error")
	ErrRecognitionTransient  = errors.New("recognition transient error")
	ErrRecognitionJobFailed  = errors.New("recognition job failed")
	ErrRecognitionTimeout    = errors.New("recognition timeout")
	ErrConversion            = errors.New("subtitle conversion error")
	ErrMux                   = errors.New("subtitle mux error")
	ErrExternalTool          = errors.New("external tool error")
	errUnclassifiedComponent = errors.New("component failure")
)

// Process exit codes reported by the CLI for each failure class.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitExtraction    = 3
	ExitUpload        = 4
	ExitRecognition   = 5
	ExitConversion    = 6
	ExitMux           = 7
	ExitFingerprint   = 8
	ExitCancelled     = 130
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = errUnclassifiedComponent
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether re-running the pipeline later may succeed without
// any change to inputs or configuration.
func Retryable(err error) bool {
	return errors.Is(err, ErrRecognitionTimeout) || errors.Is(err, ErrRecognitionTransient)
}

// ExitCode maps a pipeline error to the process exit code for its class.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return ExitConfiguration
	case errors.Is(err, ErrFingerprint):
		return ExitFingerprint
	case errors.Is(err, ErrExtraction):
		return ExitExtraction
	case errors.Is(err, ErrUpload):
		return ExitUpload
	case errors.Is(err, ErrRecognitionSubmit),
		errors.Is(err, ErrRecognitionTransient),
		errors.Is(err, ErrRecognitionJobFailed),
		errors.Is(err, ErrRecognitionTimeout):
		return ExitRecognition
	case errors.Is(err, ErrConversion):
		return ExitConversion
	case errors.Is(err, ErrMux):
		return ExitMux
	default:
		return ExitFailure
	}
}

// ClassName returns a short stable label for the error class, used in run
// history and log fields.
func ClassName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrFingerprint):
		return "fingerprint"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrUpload):
		return "upload"
	case errors.Is(err, ErrRecognitionSubmit):
		return "recognition_submit"
	case errors.Is(err, ErrRecognitionTransient):
		return "recognition_transient"
	case errors.Is(err, ErrRecognitionJobFailed):
		return "recognition_failed"
	case errors.Is(err, ErrRecognitionTimeout):
		return "recognition_timeout"
	case errors.Is(err, ErrConversion):
		return "conversion"
	case errors.Is(err, ErrMux):
		return "mux"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
