// Command hardsub transcribes a video's speech with a cloud recognition
// service and burns the result into a new copy of the video, alongside an
// SRT file.
//
// The burn command runs the full pipeline. Supporting commands inspect the
// remote cache (cache), past runs (history), readiness (doctor), and the
// configuration file (config).
package main
