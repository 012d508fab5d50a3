// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The pipeline uses it for two things: confirming a source video carries an
// audio stream before any remote work starts, and reading the media duration
// that bounds how long a recognition job may run.
package ffprobe
