package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credentials are
// checked separately by RequireCloudCredentials so offline commands work
// without them.
func (c *Config) Validate() error {
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateObjectStorage(); err != nil {
		return err
	}
	return nil
}

// RequireCloudCredentials reports the first missing setting needed to talk to
// object storage and the recognition service.
func (c *Config) RequireCloudCredentials() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/hardsub/config.toml"
	}
	switch {
	case c.Aliyun.AccessKeyID == "":
		return fmt.Errorf("aliyun.access_key_id is required. Set ALIBABA_CLOUD_ACCESS_KEY_ID or edit %s (create with 'hardsub config init')", defaultPath)
	case c.Aliyun.AccessKeySecret == "":
		return fmt.Errorf("aliyun.access_key_secret is required. Set ALIBABA_CLOUD_ACCESS_KEY_SECRET or edit %s", defaultPath)
	case c.ObjectStorage.Bucket == "":
		return fmt.Errorf("object_storage.bucket is required. Set OSS_BUCKET or edit %s", defaultPath)
	case c.Recognition.AppKey == "":
		return fmt.Errorf("recognition.app_key is required. Set NLS_APP_KEY or edit %s", defaultPath)
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if err := ensurePositiveMap(map[string]int{
		"recognition.poll_interval_seconds":   c.Recognition.PollIntervalSeconds,
		"recognition.default_wait_seconds":    c.Recognition.DefaultWaitSeconds,
		"recognition.min_wait_seconds":        c.Recognition.MinWaitSeconds,
		"recognition.max_wait_seconds":        c.Recognition.MaxWaitSeconds,
		"recognition.request_timeout_seconds": c.Recognition.RequestTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Recognition.MaxPollFailures < 0 {
		return errors.New("recognition.max_poll_failures must be >= 0")
	}
	if c.Recognition.MinWaitSeconds > c.Recognition.MaxWaitSeconds {
		return errors.New("recognition.min_wait_seconds must not exceed recognition.max_wait_seconds")
	}
	if c.Recognition.PollIntervalSeconds >= c.Recognition.MaxWaitSeconds {
		return errors.New("recognition.poll_interval_seconds must be less than recognition.max_wait_seconds")
	}
	if c.Recognition.MaxSingleSegmentMS < 0 {
		return errors.New("recognition.max_single_segment_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if c.Subtitles.MaxCueDurationMS <= 0 {
		return errors.New("subtitles.max_cue_duration_ms must be positive")
	}
	if c.Subtitles.MaxCueChars <= 0 {
		return errors.New("subtitles.max_cue_chars must be positive")
	}
	if strings.ContainsAny(c.Subtitles.VideoSuffix, `/\`) {
		return errors.New("subtitles.video_suffix must not contain path separators")
	}
	return nil
}

func (c *Config) validateObjectStorage() error {
	if c.ObjectStorage.AudioPrefix == c.ObjectStorage.TranscriptPrefix {
		return errors.New("object_storage.audio_prefix and object_storage.transcript_prefix must differ")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
