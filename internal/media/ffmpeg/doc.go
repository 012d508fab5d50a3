// Package ffmpeg wraps the ffmpeg invocations hardsub needs: pulling a mono
// speech track out of a video and burning an SRT file into the picture.
//
// Both operations run through an injectable CommandRunner so tests can
// simulate success or failure without a real binary. Encoding parameters are
// fixed constants tuned for the recognition service, not configuration.
package ffmpeg
