// Package staging manages the per-run work directories under the staging
// root and the per-content locks that serialize runs over the same video.
//
// Each run stages its intermediate audio, subtitle, and burned video files in
// a "run-<id>" directory that the pipeline removes on every exit path.
// CleanStale sweeps directories left behind by crashed processes.
package staging
