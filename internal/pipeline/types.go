package pipeline

import (
	"context"
	"time"

	"hardsub/internal/fingerprint"
	"hardsub/internal/history"
	"hardsub/internal/media/ffprobe"
	"hardsub/internal/recognition"
	"hardsub/internal/subtitles"
)

// Fingerprinter computes the content key of a file.
type Fingerprinter func(ctx context.Context, path string) (fingerprint.Fingerprint, error)

// Prober inspects the input video.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// AudioExtractor writes the recognition audio track of a video.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, video, dest string) error
}

// SubtitleBurner renders subtitles into a new video.
type SubtitleBurner interface {
	BurnSubtitles(ctx context.Context, video, srt, output string) error
}

// ObjectCache stores audio and transcripts keyed by fingerprint.
type ObjectCache interface {
	Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error)
	Upload(ctx context.Context, fp fingerprint.Fingerprint, localPath string) (bool, error)
	LocatorFor(ctx context.Context, fp fingerprint.Fingerprint) (string, error)
	Delete(ctx context.Context, fp fingerprint.Fingerprint) error
	LoadTranscript(ctx context.Context, fp fingerprint.Fingerprint, variant string) ([]byte, bool, error)
	StoreTranscript(ctx context.Context, fp fingerprint.Fingerprint, variant string, data []byte) error
}

// Recognizer runs speech recognition jobs.
type Recognizer interface {
	Submit(ctx context.Context, audioURL string, opts recognition.Options) (*recognition.Job, error)
	Wait(ctx context.Context, job *recognition.Job, maxWait time.Duration) error
	FetchResult(ctx context.Context, job *recognition.Job) (recognition.Transcript, error)
}

// HistoryRecorder persists the outcome of a run.
type HistoryRecorder interface {
	Record(ctx context.Context, run history.Run) (int64, error)
}

// Deps are the orchestrator's collaborators. Prober and History are optional.
type Deps struct {
	Fingerprint Fingerprinter
	Prober      Prober
	Extractor   AudioExtractor
	Burner      SubtitleBurner
	Cache       ObjectCache
	Recognizer  Recognizer
	History     HistoryRecorder
}

// Config holds the orchestrator settings derived from the application config.
type Config struct {
	StagingDir string
	LockDir    string
	// OutputDir receives published artifacts; empty means next to the input.
	OutputDir   string
	VideoSuffix string
	// Language is the default recognition language hint.
	Language           string
	RecognitionOptions recognition.Options
	Wait               recognition.WaitBounds
	Convert            subtitles.ConvertOptions
	UseTranscriptCache bool
	// DeleteUploaded removes audio this run uploaded once the run ends.
	DeleteUploaded bool
	LockRetry      time.Duration
}

// Request describes one video to process.
type Request struct {
	VideoPath string
	// OutputDir overrides Config.OutputDir.
	OutputDir string
	// BaseName names the artifacts; defaults to the input file stem.
	BaseName string
	// Language overrides Config.Language.
	Language string
}

// Result reports what a run produced and which caches it used.
type Result struct {
	RunID              string
	Fingerprint        fingerprint.Fingerprint
	VideoPath          string
	SubtitlePath       string
	CueCount           int
	AudioCacheHit      bool
	TranscriptCacheHit bool
	Uploaded           bool
	JobID              string
	MediaDuration      time.Duration
	Elapsed            time.Duration
}
