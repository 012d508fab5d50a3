package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir        string `toml:"staging_dir"`
	OutputDir         string `toml:"output_dir"`
	StateDir          string `toml:"state_dir"`
	LogDir            string `toml:"log_dir"`
	StaleWorkDirHours int    `toml:"stale_work_dir_hours"`
}

// Aliyun contains the Alibaba Cloud account credentials shared by object
// storage and speech recognition.
type Aliyun struct {
	AccessKeyID     string `toml:"access_key_id"`
	AccessKeySecret string `toml:"access_key_secret"`
	Region          string `toml:"region"`
}

// FFmpeg contains external transcoding tool settings.
type FFmpeg struct {
	Binary        string `toml:"binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	// SubtitleStyle is passed to the subtitles filter as force_style when set,
	// e.g. "FontName=Noto Sans CJK SC,FontSize=22".
	SubtitleStyle string `toml:"subtitle_style"`
}

// ObjectStorage contains configuration for the remote audio cache bucket.
type ObjectStorage struct {
	Endpoint         string `toml:"endpoint"`
	Bucket           string `toml:"bucket"`
	AudioPrefix      string `toml:"audio_prefix"`
	TranscriptPrefix string `toml:"transcript_prefix"`
	URLExpirySeconds int    `toml:"url_expiry_seconds"`
	// DeleteUploaded removes audio a run uploaded itself once the run ends.
	// Cache hits never delete. Leaving this off keeps the cache warm.
	DeleteUploaded bool `toml:"delete_uploaded"`
}

// Recognition contains configuration for the file transcription service.
type Recognition struct {
	AppKey                    string `toml:"app_key"`
	Endpoint                  string `toml:"endpoint"`
	Language                  string `toml:"language"`
	PollIntervalSeconds       int    `toml:"poll_interval_seconds"`
	MaxPollFailures           int    `toml:"max_poll_failures"`
	DefaultWaitSeconds        int    `toml:"default_wait_seconds"`
	MinWaitSeconds            int    `toml:"min_wait_seconds"`
	MaxWaitSeconds            int    `toml:"max_wait_seconds"`
	RequestTimeoutSeconds     int    `toml:"request_timeout_seconds"`
	EnableWords               bool   `toml:"enable_words"`
	PunctuationPrediction     bool   `toml:"punctuation_prediction"`
	SemanticSentenceDetection bool   `toml:"semantic_sentence_detection"`
	InverseTextNormalization  bool   `toml:"inverse_text_normalization"`
	DisfluencyRemoval         bool   `toml:"disfluency_removal"`
	MaxSingleSegmentMS        int    `toml:"max_single_segment_ms"`
}

// Subtitles contains cue layout and output naming configuration.
type Subtitles struct {
	MaxCueDurationMS int    `toml:"max_cue_duration_ms"`
	MaxCueChars      int    `toml:"max_cue_chars"`
	MergeGapMS       int    `toml:"merge_gap_ms"`
	VideoSuffix      string `toml:"video_suffix"`
}

// Cache contains configuration for result reuse across runs.
type Cache struct {
	Transcripts bool `toml:"transcripts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hardsub.
//
// Configuration sections by subsystem:
//   - Paths: staging, output, state, and log directories
//   - Aliyun: account credentials and region
//   - FFmpeg: transcoding binaries and burn-in style
//   - ObjectStorage: remote audio cache bucket
//   - Recognition: transcription job options and polling bounds
//   - Subtitles: cue splitting and output naming
//   - Cache: transcript reuse
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Aliyun        Aliyun        `toml:"aliyun"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	ObjectStorage ObjectStorage `toml:"object_storage"`
	Recognition   Recognition   `toml:"recognition"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Cache         Cache         `toml:"cache"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hardsub/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hardsub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a pipeline run writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.StateDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockDir returns the directory holding per-content run locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StagingDir, ".locks")
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		return defaultFFmpegBinary
	}
	return c.FFmpeg.Binary
}

// FFprobeBinary returns the ffprobe executable name used for duration probing.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.FFmpeg.FFprobeBinary) == "" {
		return defaultFFprobeBinary
	}
	return c.FFmpeg.FFprobeBinary
}

// ObjectStorageEndpoint returns the configured endpoint or the public regional
// endpoint derived from the account region.
func (c *Config) ObjectStorageEndpoint() string {
	if endpoint := strings.TrimSpace(c.ObjectStorage.Endpoint); endpoint != "" {
		return endpoint
	}
	return fmt.Sprintf("https://oss-%s.aliyuncs.com", c.Aliyun.Region)
}

// RecognitionEndpoint returns the configured transcription endpoint or the
// regional default.
func (c *Config) RecognitionEndpoint() string {
	if endpoint := strings.TrimSpace(c.Recognition.Endpoint); endpoint != "" {
		return endpoint
	}
	return fmt.Sprintf("filetrans.%s.aliyuncs.com", c.Aliyun.Region)
}

// Encode renders the configuration as TOML. Secrets are masked unless
// includeSecrets is set.
func (c *Config) Encode(includeSecrets bool) ([]byte, error) {
	clone := *c
	if !includeSecrets {
		clone.Aliyun.AccessKeyID = maskSecret(clone.Aliyun.AccessKeyID)
		clone.Aliyun.AccessKeySecret = maskSecret(clone.Aliyun.AccessKeySecret)
		clone.Recognition.AppKey = maskSecret(clone.Recognition.AppKey)
	}
	data, err := toml.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
