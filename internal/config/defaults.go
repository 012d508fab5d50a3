package config

const (
	defaultStagingDir            = "~/.local/share/hardsub/staging"
	defaultStateDir              = "~/.local/share/hardsub"
	defaultLogDir                = "~/.local/share/hardsub/logs"
	defaultStaleWorkDirHours     = 24
	defaultRegion                = "cn-shanghai"
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultAudioPrefix           = "audio/"
	defaultTranscriptPrefix      = "transcripts/"
	defaultURLExpirySeconds      = 3600
	defaultPollIntervalSeconds   = 10
	defaultMaxPollFailures       = 3
	defaultWaitSeconds           = 300
	defaultMinWaitSeconds        = 120
	defaultMaxWaitSeconds        = 600
	defaultRequestTimeoutSeconds = 30
	defaultMaxSingleSegmentMS    = 15000
	defaultMaxCueDurationMS      = 7000
	defaultMaxCueChars           = 32
	defaultVideoSuffix           = ".subtitled"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir:        defaultStagingDir,
			StateDir:          defaultStateDir,
			LogDir:            defaultLogDir,
			StaleWorkDirHours: defaultStaleWorkDirHours,
		},
		Aliyun: Aliyun{
			Region: defaultRegion,
		},
		FFmpeg: FFmpeg{
			Binary:        defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		ObjectStorage: ObjectStorage{
			AudioPrefix:      defaultAudioPrefix,
			TranscriptPrefix: defaultTranscriptPrefix,
			URLExpirySeconds: defaultURLExpirySeconds,
		},
		Recognition: Recognition{
			PollIntervalSeconds:       defaultPollIntervalSeconds,
			MaxPollFailures:           defaultMaxPollFailures,
			DefaultWaitSeconds:        defaultWaitSeconds,
			MinWaitSeconds:            defaultMinWaitSeconds,
			MaxWaitSeconds:            defaultMaxWaitSeconds,
			RequestTimeoutSeconds:     defaultRequestTimeoutSeconds,
			EnableWords:               true,
			PunctuationPrediction:     true,
			SemanticSentenceDetection: true,
			InverseTextNormalization:  true,
			MaxSingleSegmentMS:        defaultMaxSingleSegmentMS,
		},
		Subtitles: Subtitles{
			MaxCueDurationMS: defaultMaxCueDurationMS,
			MaxCueChars:      defaultMaxCueChars,
			VideoSuffix:      defaultVideoSuffix,
		},
		Cache: Cache{
			Transcripts: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
