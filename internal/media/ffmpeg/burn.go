package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strings"

	"hardsub/internal/services"
)

// Burner renders subtitles into the video frames.
type Burner struct {
	binary string
	style  string
	run    CommandRunner
}

// NewBurner builds a burner. style is an optional libass force_style value.
func NewBurner(binary, style string, runner CommandRunner) *Burner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if runner == nil {
		runner = defaultCommandRunner
	}
	return &Burner{binary: binary, style: strings.TrimSpace(style), run: runner}
}

// BurnSubtitles writes video with srt burned in to output. Audio is copied
// untouched. A failed or empty render leaves no file at output.
func (b *Burner) BurnSubtitles(ctx context.Context, video, srt, output string) error {
	if strings.TrimSpace(video) == "" || strings.TrimSpace(srt) == "" || strings.TrimSpace(output) == "" {
		return services.Wrap(services.ErrValidation, "burn", "validate input", "video, subtitle, and output paths are required", nil)
	}
	if _, err := os.Stat(srt); err != nil {
		return services.Wrap(services.ErrMux, "burn", "stat subtitles", "Subtitle file missing", err)
	}
	if err := b.run(ctx, b.binary, BurnArgs(video, srt, output, b.style)...); err != nil {
		_ = os.Remove(output)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrMux, "burn", "ffmpeg", "Subtitle burn-in failed", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		return services.Wrap(services.ErrMux, "burn", "verify output", "ffmpeg produced no output video", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(output)
		return services.Wrap(services.ErrMux, "burn", "verify output", fmt.Sprintf("ffmpeg produced an empty video for %s", video), nil)
	}
	return nil
}

// BurnArgs returns the ffmpeg arguments used to burn srt into video.
func BurnArgs(video, srt, output, style string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-loglevel", "error",
		"-i", video,
		"-vf", SubtitlesFilter(srt, style),
		"-c:a", "copy",
		output,
	}
}

// SubtitlesFilter builds the subtitles filter expression for path. The path
// is escaped twice: once for the filter option parser and once for the
// filtergraph parser. The style is quoted so its commas stay inside the
// option value.
func SubtitlesFilter(path, style string) string {
	filter := "subtitles=" + escapeFiltergraph(escapeFilterOption(path))
	if style != "" {
		filter += ":force_style='" + strings.ReplaceAll(style, "'", "") + "'"
	}
	return filter
}

func escapeFilterOption(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '\\', '\'', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeFiltergraph(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '\\', '\'', '[', ']', ',', ';':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
