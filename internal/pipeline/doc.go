// Package pipeline runs one video through the full subtitle-burning flow.
//
// The Orchestrator probes and fingerprints the video, serializes runs over
// identical content with a per-fingerprint lock, reuses cached transcripts and
// audio from object storage, drives the recognition job, converts the result
// into SRT cues, burns them into a new video, and publishes both artifacts to
// the output directory. Every exit path removes the run's work directory, and
// a run either publishes both artifacts or neither.
//
// Collaborators are injected through Deps so tests can substitute fakes for
// ffmpeg, ffprobe, object storage, and the recognition service.
package pipeline
