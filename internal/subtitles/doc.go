// Package subtitles turns recognized transcripts into SRT cues.
//
// Convert normalizes, orders, splits, and optionally merges transcript
// segments so every cue respects the configured duration and character
// limits. WriteSRT and WriteFile serialize cues, and ValidateSRTContent
// re-reads a written file before it is handed to the muxer.
package subtitles
