package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hardsub/internal/config"
)

func TestLoadDefaultConfigUsesEnvCredentialsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("ALIBABA_CLOUD_ACCESS_KEY_ID", "env-id")
	t.Setenv("ALIBABA_CLOUD_ACCESS_KEY_SECRET", "env-secret")
	t.Setenv("NLS_APP_KEY", "env-app")
	t.Setenv("OSS_BUCKET", " env-bucket ")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "hardsub", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "hardsub", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.LockDir() != filepath.Join(wantStaging, ".locks") {
		t.Fatalf("unexpected lock dir: %q", cfg.LockDir())
	}
	if cfg.Aliyun.AccessKeyID != "env-id" || cfg.Aliyun.AccessKeySecret != "env-secret" {
		t.Fatalf("expected credentials from env, got %q/%q", cfg.Aliyun.AccessKeyID, cfg.Aliyun.AccessKeySecret)
	}
	if cfg.Recognition.AppKey != "env-app" {
		t.Fatalf("expected app key from env, got %q", cfg.Recognition.AppKey)
	}
	if cfg.ObjectStorage.Bucket != "env-bucket" {
		t.Fatalf("expected trimmed bucket from env, got %q", cfg.ObjectStorage.Bucket)
	}
	if err := cfg.RequireCloudCredentials(); err != nil {
		t.Fatalf("expected credentials to be complete: %v", err)
	}
	if cfg.ObjectStorageEndpoint() != "https://oss-cn-shanghai.aliyuncs.com" {
		t.Fatalf("unexpected oss endpoint: %q", cfg.ObjectStorageEndpoint())
	}
	if cfg.RecognitionEndpoint() != "filetrans.cn-shanghai.aliyuncs.com" {
		t.Fatalf("unexpected recognition endpoint: %q", cfg.RecognitionEndpoint())
	}
	if cfg.ObjectStorage.DeleteUploaded {
		t.Fatal("expected uploaded audio to be kept by default")
	}
	if !cfg.Cache.Transcripts {
		t.Fatal("expected transcript cache enabled by default")
	}
	if cfg.Recognition.PollIntervalSeconds != 10 {
		t.Fatalf("unexpected poll interval: %d", cfg.Recognition.PollIntervalSeconds)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hardsub.toml")

	type payload struct {
		ObjectStorage struct {
			Bucket      string `toml:"bucket"`
			AudioPrefix string `toml:"audio_prefix"`
		} `toml:"object_storage"`
		Recognition struct {
			PollIntervalSeconds int    `toml:"poll_interval_seconds"`
			Language            string `toml:"language"`
		} `toml:"recognition"`
		Subtitles struct {
			MaxCueChars int `toml:"max_cue_chars"`
		} `toml:"subtitles"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.ObjectStorage.Bucket = "media"
	custom.ObjectStorage.AudioPrefix = "/speech"
	custom.Recognition.PollIntervalSeconds = 5
	custom.Recognition.Language = "en"
	custom.Subtitles.MaxCueChars = 40
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.ObjectStorage.Bucket != "media" {
		t.Fatalf("expected bucket from file, got %q", cfg.ObjectStorage.Bucket)
	}
	if cfg.ObjectStorage.AudioPrefix != "speech/" {
		t.Fatalf("expected normalized audio prefix, got %q", cfg.ObjectStorage.AudioPrefix)
	}
	if cfg.ObjectStorage.TranscriptPrefix != "transcripts/" {
		t.Fatalf("expected default transcript prefix, got %q", cfg.ObjectStorage.TranscriptPrefix)
	}
	if cfg.Recognition.PollIntervalSeconds != 5 {
		t.Fatalf("expected poll interval 5, got %d", cfg.Recognition.PollIntervalSeconds)
	}
	if cfg.Recognition.Language != "en" {
		t.Fatalf("expected language en, got %q", cfg.Recognition.Language)
	}
	if cfg.Subtitles.MaxCueChars != 40 {
		t.Fatalf("expected max cue chars 40, got %d", cfg.Subtitles.MaxCueChars)
	}
	if cfg.Subtitles.MaxCueDurationMS != 7000 {
		t.Fatalf("expected default max cue duration, got %d", cfg.Subtitles.MaxCueDurationMS)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lower-cased json format, got %q", cfg.Logging.Format)
	}
}

func TestConfigFileValuesTakePrecedenceOverEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "hardsub.toml")
	contents := "[aliyun]\naccess_key_id = \"file-id\"\n[recognition]\napp_key = \"file-app\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ALIBABA_CLOUD_ACCESS_KEY_ID", "env-id")
	t.Setenv("NLS_APP_KEY", "env-app")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Aliyun.AccessKeyID != "file-id" {
		t.Errorf("expected access key from file, got %q", cfg.Aliyun.AccessKeyID)
	}
	if cfg.Recognition.AppKey != "file-app" {
		t.Errorf("expected app key from file, got %q", cfg.Recognition.AppKey)
	}
}

func TestRequireCloudCredentialsReportsMissingSetting(t *testing.T) {
	cfg := config.Default()
	cfg.Aliyun.AccessKeyID = "id"
	cfg.Aliyun.AccessKeySecret = "secret"
	cfg.Recognition.AppKey = "app"
	err := cfg.RequireCloudCredentials()
	if err == nil || !strings.Contains(err.Error(), "object_storage.bucket") {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
}

func TestEncodeMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Aliyun.AccessKeyID = "LTAI5tExampleKey"
	cfg.Aliyun.AccessKeySecret = "abc"

	data, err := cfg.Encode(false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(data)
	if strings.Contains(text, "LTAI5tExampleKey") {
		t.Fatalf("expected access key to be masked: %s", text)
	}
	if !strings.Contains(text, "LT************ey") {
		t.Fatalf("expected partially masked key: %s", text)
	}
	if !strings.Contains(text, "****") {
		t.Fatalf("expected short secret fully masked: %s", text)
	}

	data, err = cfg.Encode(true)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), "LTAI5tExampleKey") {
		t.Fatalf("expected raw key when secrets included: %s", data)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_access_key_id_here") {
		t.Fatalf("sample config missing placeholder access key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.StagingDir, "hardsub") {
		t.Fatalf("expected staging dir to contain hardsub, got %q", cfg.Paths.StagingDir)
	}
	if cfg.Recognition.MaxWaitSeconds != 600 {
		t.Fatalf("expected sample max wait 600, got %d", cfg.Recognition.MaxWaitSeconds)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero poll interval", func(c *config.Config) { c.Recognition.PollIntervalSeconds = 0 }},
		{"min wait above max", func(c *config.Config) { c.Recognition.MinWaitSeconds = c.Recognition.MaxWaitSeconds + 1 }},
		{"poll interval not below max wait", func(c *config.Config) { c.Recognition.PollIntervalSeconds = c.Recognition.MaxWaitSeconds }},
		{"negative poll failures", func(c *config.Config) { c.Recognition.MaxPollFailures = -1 }},
		{"zero cue duration", func(c *config.Config) { c.Subtitles.MaxCueDurationMS = 0 }},
		{"zero cue chars", func(c *config.Config) { c.Subtitles.MaxCueChars = 0 }},
		{"suffix with separator", func(c *config.Config) { c.Subtitles.VideoSuffix = "a/b" }},
		{"shared prefixes", func(c *config.Config) { c.ObjectStorage.TranscriptPrefix = c.ObjectStorage.AudioPrefix }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}
