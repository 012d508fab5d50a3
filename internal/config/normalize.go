package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAliyun()
	c.normalizeFFmpeg()
	c.normalizeObjectStorage()
	c.normalizeRecognition()
	c.normalizeSubtitles()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StaleWorkDirHours < 0 {
		c.Paths.StaleWorkDirHours = 0
	}
	return nil
}

func (c *Config) normalizeAliyun() {
	c.Aliyun.AccessKeyID = strings.TrimSpace(c.Aliyun.AccessKeyID)
	if c.Aliyun.AccessKeyID == "" {
		if value, ok := os.LookupEnv("ALIBABA_CLOUD_ACCESS_KEY_ID"); ok {
			c.Aliyun.AccessKeyID = strings.TrimSpace(value)
		}
	}
	c.Aliyun.AccessKeySecret = strings.TrimSpace(c.Aliyun.AccessKeySecret)
	if c.Aliyun.AccessKeySecret == "" {
		if value, ok := os.LookupEnv("ALIBABA_CLOUD_ACCESS_KEY_SECRET"); ok {
			c.Aliyun.AccessKeySecret = strings.TrimSpace(value)
		}
	}
	c.Aliyun.Region = strings.ToLower(strings.TrimSpace(c.Aliyun.Region))
	if c.Aliyun.Region == "" {
		c.Aliyun.Region = defaultRegion
	}
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpegBinary
	}
	c.FFmpeg.FFprobeBinary = strings.TrimSpace(c.FFmpeg.FFprobeBinary)
	if c.FFmpeg.FFprobeBinary == "" {
		c.FFmpeg.FFprobeBinary = defaultFFprobeBinary
	}
	c.FFmpeg.SubtitleStyle = strings.TrimSpace(c.FFmpeg.SubtitleStyle)
}

func (c *Config) normalizeObjectStorage() {
	c.ObjectStorage.Endpoint = strings.TrimSpace(c.ObjectStorage.Endpoint)
	c.ObjectStorage.Bucket = strings.TrimSpace(c.ObjectStorage.Bucket)
	if c.ObjectStorage.Bucket == "" {
		if value, ok := os.LookupEnv("OSS_BUCKET"); ok {
			c.ObjectStorage.Bucket = strings.TrimSpace(value)
		}
	}
	c.ObjectStorage.AudioPrefix = normalizePrefix(c.ObjectStorage.AudioPrefix, defaultAudioPrefix)
	c.ObjectStorage.TranscriptPrefix = normalizePrefix(c.ObjectStorage.TranscriptPrefix, defaultTranscriptPrefix)
	if c.ObjectStorage.URLExpirySeconds <= 0 {
		c.ObjectStorage.URLExpirySeconds = defaultURLExpirySeconds
	}
}

func (c *Config) normalizeRecognition() {
	c.Recognition.AppKey = strings.TrimSpace(c.Recognition.AppKey)
	if c.Recognition.AppKey == "" {
		if value, ok := os.LookupEnv("NLS_APP_KEY"); ok {
			c.Recognition.AppKey = strings.TrimSpace(value)
		}
	}
	c.Recognition.Endpoint = strings.TrimSpace(c.Recognition.Endpoint)
	c.Recognition.Language = strings.TrimSpace(c.Recognition.Language)
	if c.Recognition.RequestTimeoutSeconds <= 0 {
		c.Recognition.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.VideoSuffix = strings.TrimSpace(c.Subtitles.VideoSuffix)
	if c.Subtitles.VideoSuffix == "" {
		c.Subtitles.VideoSuffix = defaultVideoSuffix
	}
	if c.Subtitles.MergeGapMS < 0 {
		c.Subtitles.MergeGapMS = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizePrefix(value, fallback string) string {
	value = strings.Trim(strings.TrimSpace(value), "/")
	if value == "" {
		return fallback
	}
	return value + "/"
}
