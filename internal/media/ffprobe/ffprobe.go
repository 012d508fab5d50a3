package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// OutputRunner executes a command and returns its standard output.
type OutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Result holds the streams and container entries requested from ffprobe.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one elementary stream of the container.
type Stream struct {
	Index     int        `json:"index"`
	CodecName string     `json:"codec_name"`
	CodecType string     `json:"codec_type"`
	Duration  string     `json:"duration"`
	Channels  int        `json:"channels"`
	Tags      StreamTags `json:"tags"`
}

// StreamTags carries the stream metadata tags the pipeline logs.
type StreamTags struct {
	Language string `json:"language"`
}

// Format is the container-level entry.
type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// probeEntries limits ffprobe to the fields decoded into Result.
const probeEntries = "format=duration,format_name:stream=index,codec_name,codec_type,duration,channels:stream_tags=language"

// Prober inspects media files.
type Prober struct {
	binary string
	run    OutputRunner
}

// NewProber returns a prober for binary. A nil runner executes the real tool.
func NewProber(binary string, runner OutputRunner) *Prober {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	if runner == nil {
		runner = execOutput
	}
	return &Prober{binary: binary, run: runner}
}

// Inspect runs ffprobe on path and decodes its JSON report.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe: empty path")
	}
	out, err := p.run(ctx, p.binary, "-v", "error", "-show_entries", probeEntries, "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var result Result
	if err := json.Unmarshal(out, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe %s: decode report: %w", path, err)
	}
	return result, nil
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// AudioStreams returns the audio streams in container order.
func (r Result) AudioStreams() []Stream {
	var audio []Stream
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "audio") {
			audio = append(audio, s)
		}
	}
	return audio
}

// Duration is the container duration, or the longest stream duration when
// the container does not report one. Zero means unknown.
func (r Result) Duration() time.Duration {
	seconds, ok := parseSeconds(r.Format.Duration)
	if !ok {
		for _, s := range r.Streams {
			if v, vok := parseSeconds(s.Duration); vok && v > seconds {
				seconds = v
			}
		}
	}
	return time.Duration(seconds * float64(time.Second))
}

// parseSeconds accepts ffprobe's decimal seconds. "N/A", garbage, and
// non-positive values are reported as absent.
func parseSeconds(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
