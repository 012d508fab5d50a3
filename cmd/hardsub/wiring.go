package main

import (
	"fmt"
	"log/slog"
	"time"

	"hardsub/internal/config"
	"hardsub/internal/history"
	"hardsub/internal/media/ffmpeg"
	"hardsub/internal/media/ffprobe"
	"hardsub/internal/objectcache"
	"hardsub/internal/objectcache/oss"
	"hardsub/internal/pipeline"
	"hardsub/internal/recognition"
	"hardsub/internal/recognition/aliyun"
	"hardsub/internal/services"
	"hardsub/internal/subtitles"
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func newBucket(cfg *config.Config) (*oss.Backend, error) {
	backend, err := oss.New(oss.Config{
		Endpoint:        cfg.ObjectStorageEndpoint(),
		Bucket:          cfg.ObjectStorage.Bucket,
		AccessKeyID:     cfg.Aliyun.AccessKeyID,
		AccessKeySecret: cfg.Aliyun.AccessKeySecret,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "object storage", "Unable to configure object storage client", err)
	}
	return backend, nil
}

func newObjectCache(cfg *config.Config, backend objectcache.Backend, logger *slog.Logger) *objectcache.Cache {
	return objectcache.New(backend, objectcache.Config{
		AudioPrefix:      cfg.ObjectStorage.AudioPrefix,
		TranscriptPrefix: cfg.ObjectStorage.TranscriptPrefix,
		URLExpiry:        seconds(cfg.ObjectStorage.URLExpirySeconds),
	}, logger)
}

func newRecognizer(cfg *config.Config, logger *slog.Logger) (*recognition.Client, error) {
	api, err := aliyun.New(aliyun.Config{
		AccessKeyID:     cfg.Aliyun.AccessKeyID,
		AccessKeySecret: cfg.Aliyun.AccessKeySecret,
		Region:          cfg.Aliyun.Region,
		Endpoint:        cfg.RecognitionEndpoint(),
		AppKey:          cfg.Recognition.AppKey,
		RequestTimeout:  seconds(cfg.Recognition.RequestTimeoutSeconds),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "recognition", "Unable to configure recognition client", err)
	}
	return recognition.NewClient(api, recognition.Config{
		PollInterval:    seconds(cfg.Recognition.PollIntervalSeconds),
		MaxPollFailures: cfg.Recognition.MaxPollFailures,
	}, logger), nil
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		StagingDir:  cfg.Paths.StagingDir,
		LockDir:     cfg.LockDir(),
		OutputDir:   cfg.Paths.OutputDir,
		VideoSuffix: cfg.Subtitles.VideoSuffix,
		Language:    cfg.Recognition.Language,
		RecognitionOptions: recognition.Options{
			EnableWords:               cfg.Recognition.EnableWords,
			PunctuationPrediction:     cfg.Recognition.PunctuationPrediction,
			SemanticSentenceDetection: cfg.Recognition.SemanticSentenceDetection,
			InverseTextNormalization:  cfg.Recognition.InverseTextNormalization,
			DisfluencyRemoval:         cfg.Recognition.DisfluencyRemoval,
			MaxSingleSegment:          millis(cfg.Recognition.MaxSingleSegmentMS),
		},
		Wait: recognition.WaitBounds{
			Default: seconds(cfg.Recognition.DefaultWaitSeconds),
			Min:     seconds(cfg.Recognition.MinWaitSeconds),
			Max:     seconds(cfg.Recognition.MaxWaitSeconds),
		},
		Convert: subtitles.ConvertOptions{
			MaxDuration: millis(cfg.Subtitles.MaxCueDurationMS),
			MaxChars:    cfg.Subtitles.MaxCueChars,
			MergeGap:    millis(cfg.Subtitles.MergeGapMS),
		},
		UseTranscriptCache: cfg.Cache.Transcripts,
		DeleteUploaded:     cfg.ObjectStorage.DeleteUploaded,
	}
}

// newOrchestrator wires the production collaborators. hist may be nil.
func newOrchestrator(cfg *config.Config, cache pipeline.ObjectCache, hist *history.Store, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	recognizer, err := newRecognizer(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps := pipeline.Deps{
		Prober:     ffprobe.NewProber(cfg.FFprobeBinary(), nil),
		Extractor:  ffmpeg.NewExtractor(cfg.FFmpegBinary(), nil),
		Burner:     ffmpeg.NewBurner(cfg.FFmpegBinary(), cfg.FFmpeg.SubtitleStyle, nil),
		Cache:      cache,
		Recognizer: recognizer,
	}
	if hist != nil {
		deps.History = hist
	}
	orchestrator, err := pipeline.New(pipelineConfig(cfg), deps, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return orchestrator, nil
}
