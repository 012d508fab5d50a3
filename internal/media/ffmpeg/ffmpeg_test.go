package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"hardsub/internal/services"
)

type recordedCall struct {
	name string
	args []string
}

// stubRunner records invocations and writes content to the last argument,
// which is the output path for every ffmpeg command built here.
func stubRunner(calls *[]recordedCall, content string, err error) CommandRunner {
	return func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, recordedCall{name: name, args: append([]string(nil), args...)})
		if content != "" || err != nil {
			out := args[len(args)-1]
			if writeErr := os.WriteFile(out, []byte(content), 0o644); writeErr != nil {
				return writeErr
			}
		}
		return err
	}
}

func TestExtractAudioUsesFixedParameters(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "audio.mp3")
	var calls []recordedCall
	extractor := NewExtractor("/opt/ffmpeg", stubRunner(&calls, "ID3", nil))

	if err := extractor.ExtractAudio(context.Background(), "/videos/in.mkv", dest); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if len(calls) != 1 || calls[0].name != "/opt/ffmpeg" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	args := strings.Join(calls[0].args, " ")
	for _, want := range []string{"-i /videos/in.mkv", "-vn", "-acodec libmp3lame", "-ar 16000", "-ac 1", "-b:a 64k", "-compression_level 2"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in args %q", want, args)
		}
	}
	if calls[0].args[len(calls[0].args)-1] != dest {
		t.Fatalf("expected destination last, got %v", calls[0].args)
	}
}

func TestExtractAudioFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		runErr  error
	}{
		{name: "non-zero exit", content: "partial", runErr: errors.New("exit status 1: Invalid data")},
		{name: "no output", content: "", runErr: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "audio.mp3")
			var calls []recordedCall
			extractor := NewExtractor("", stubRunner(&calls, tt.content, tt.runErr))
			err := extractor.ExtractAudio(context.Background(), "in.mkv", dest)
			if !errors.Is(err, services.ErrExtraction) {
				t.Fatalf("expected ErrExtraction, got %v", err)
			}
			if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
				t.Fatalf("expected no file at destination, stat err %v", statErr)
			}
		})
	}
}

func TestExtractAudioEmptyOutput(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "audio.mp3")
	runner := func(_ context.Context, _ string, args ...string) error {
		return os.WriteFile(args[len(args)-1], nil, 0o644)
	}
	err := NewExtractor("ffmpeg", runner).ExtractAudio(context.Background(), "in.mkv", dest)
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("expected empty output removed")
	}
}

func TestBurnSubtitlesBuildsFilter(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "subs.srt")
	if err := os.WriteFile(srt, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n\n"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	out := filepath.Join(dir, "out.mkv")
	var calls []recordedCall
	burner := NewBurner("ffmpeg", "FontSize=22", stubRunner(&calls, "video", nil))

	if err := burner.BurnSubtitles(context.Background(), "in.mkv", srt, out); err != nil {
		t.Fatalf("BurnSubtitles: %v", err)
	}
	args := calls[0].args
	idx := slices.Index(args, "-vf")
	if idx < 0 {
		t.Fatalf("missing -vf in %v", args)
	}
	if want := SubtitlesFilter(srt, "FontSize=22"); args[idx+1] != want {
		t.Fatalf("filter = %q, want %q", args[idx+1], want)
	}
	if !slices.Contains(args, "copy") {
		t.Fatalf("expected audio stream copy in %v", args)
	}
}

func TestBurnSubtitlesFailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "subs.srt")
	if err := os.WriteFile(srt, []byte("x"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	out := filepath.Join(dir, "out.mkv")
	var calls []recordedCall
	burner := NewBurner("ffmpeg", "", stubRunner(&calls, "half a video", errors.New("exit status 1")))

	err := burner.BurnSubtitles(context.Background(), "in.mkv", srt, out)
	if !errors.Is(err, services.ErrMux) {
		t.Fatalf("expected ErrMux, got %v", err)
	}
	if services.ExitCode(err) != services.ExitMux {
		t.Fatalf("unexpected exit code %d", services.ExitCode(err))
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatal("expected partial output removed")
	}
}

func TestBurnSubtitlesMissingSRT(t *testing.T) {
	var calls []recordedCall
	burner := NewBurner("ffmpeg", "", stubRunner(&calls, "video", nil))
	err := burner.BurnSubtitles(context.Background(), "in.mkv", filepath.Join(t.TempDir(), "none.srt"), "out.mkv")
	if !errors.Is(err, services.ErrMux) {
		t.Fatalf("expected ErrMux, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatal("expected ffmpeg not to run")
	}
}

func TestSubtitlesFilterEscaping(t *testing.T) {
	tests := []struct {
		path  string
		style string
		want  string
	}{
		{path: "/tmp/subs.srt", want: "subtitles=/tmp/subs.srt"},
		{path: `C:\media\a.srt`, want: `subtitles=C\\:\\\\media\\\\a.srt`},
		{path: "/tmp/it's [1].srt", want: `subtitles=/tmp/it\\\'s \[1\].srt`},
		{path: "/tmp/a,b.srt", style: "FontName=Noto,FontSize=20", want: `subtitles=/tmp/a\,b.srt:force_style='FontName=Noto,FontSize=20'`},
	}
	for _, tt := range tests {
		if got := SubtitlesFilter(tt.path, tt.style); got != tt.want {
			t.Errorf("SubtitlesFilter(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
