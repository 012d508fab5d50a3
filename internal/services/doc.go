// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and recognition job
//     IDs for logging.
//   - Failure class markers plus the Wrap helper, so every error that reaches
//     the orchestrator or CLI maps to one class and one exit code.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
