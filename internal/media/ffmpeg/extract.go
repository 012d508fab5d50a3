package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strings"

	"hardsub/internal/services"
)

// Audio parameters accepted by the recognition service: 16 kHz mono MP3 at
// 64 kbit/s.
const (
	AudioCodec       = "libmp3lame"
	AudioSampleRate  = 16000
	AudioChannels    = 1
	AudioBitrate     = "64k"
	AudioQuality     = 2
	AudioExtension   = ".mp3"
	AudioContentType = "audio/mpeg"
)

// Extractor pulls the speech track out of a video.
type Extractor struct {
	binary string
	run    CommandRunner
}

// NewExtractor builds an extractor for the given ffmpeg binary. A nil runner
// executes the real binary.
func NewExtractor(binary string, runner CommandRunner) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if runner == nil {
		runner = defaultCommandRunner
	}
	return &Extractor{binary: binary, run: runner}
}

// ExtractAudio writes the normalized audio stream of video to dest.
func (e *Extractor) ExtractAudio(ctx context.Context, video, dest string) error {
	if strings.TrimSpace(video) == "" || strings.TrimSpace(dest) == "" {
		return services.Wrap(services.ErrValidation, "extract", "validate input", "video and destination paths are required", nil)
	}
	if err := e.run(ctx, e.binary, ExtractArgs(video, dest)...); err != nil {
		_ = os.Remove(dest)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExtraction, "extract", "ffmpeg", "Audio extraction failed", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "extract", "verify output", "ffmpeg produced no audio file", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrExtraction, "extract", "verify output", fmt.Sprintf("ffmpeg produced an empty audio file for %s", video), nil)
	}
	return nil
}

// ExtractArgs returns the ffmpeg arguments used for audio extraction.
func ExtractArgs(video, dest string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-loglevel", "error",
		"-i", video,
		"-vn",
		"-acodec", AudioCodec,
		"-ar", fmt.Sprintf("%d", AudioSampleRate),
		"-ac", fmt.Sprintf("%d", AudioChannels),
		"-b:a", AudioBitrate,
		"-compression_level", fmt.Sprintf("%d", AudioQuality),
		dest,
	}
}
