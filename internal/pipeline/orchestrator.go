package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"hardsub/internal/fingerprint"
	"hardsub/internal/history"
	"hardsub/internal/logging"
	"hardsub/internal/media/ffmpeg"
	"hardsub/internal/recognition"
	"hardsub/internal/services"
	"hardsub/internal/staging"
	"hardsub/internal/subtitles"
	"hardsub/internal/textutil"
)

const (
	stageValidate    = "validate"
	stageProbe       = "probe"
	stageFingerprint = "fingerprint"
	stageLock        = "lock"
	stageCache       = "cache"
	stageExtract     = "extract"
	stageUpload      = "upload"
	stageRecognize   = "recognize"
	stageConvert     = "convert"
	stageBurn        = "burn"
	stagePublish     = "publish"
)

// Orchestrator runs the subtitle-burning pipeline.
type Orchestrator struct {
	cfg      Config
	deps     Deps
	logger   *slog.Logger
	newRunID func() string
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRunIDs replaces the run id generator.
func WithRunIDs(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newRunID = fn
		}
	}
}

// WithNow replaces the wall clock used for run timestamps.
func WithNow(fn func() time.Time) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.now = fn
		}
	}
}

// New validates cfg and deps and returns an orchestrator.
func New(cfg Config, deps Deps, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	var missing []string
	if deps.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if deps.Burner == nil {
		missing = append(missing, "burner")
	}
	if deps.Cache == nil {
		missing = append(missing, "object cache")
	}
	if deps.Recognizer == nil {
		missing = append(missing, "recognizer")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init",
			fmt.Sprintf("missing collaborators: %s", strings.Join(missing, ", ")), nil)
	}
	if strings.TrimSpace(cfg.StagingDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "staging directory is required", nil)
	}
	if deps.Fingerprint == nil {
		deps.Fingerprint = fingerprint.File
	}
	if strings.TrimSpace(cfg.LockDir) == "" {
		cfg.LockDir = filepath.Join(cfg.StagingDir, ".locks")
	}
	if strings.TrimSpace(cfg.VideoSuffix) == "" {
		cfg.VideoSuffix = ".subtitled"
	}
	o := &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// run carries the state of a single execution.
type run struct {
	id       string
	req      Request
	logger   *slog.Logger
	workDir  string
	outDir   string
	baseName string
	language string

	finalVideo string
	finalSRT   string

	fp       fingerprint.Fingerprint
	duration time.Duration

	transcript recognition.Transcript
	result     Result
}

// Run processes req. On success exactly two artifacts exist in the output
// directory; on failure none from this run do.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	started := o.now()
	r := &run{id: o.newRunID(), req: req}
	ctx = services.WithRunID(ctx, r.id)
	r.logger = logging.WithContext(ctx, o.logger)
	r.result.RunID = r.id

	r.logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("video_path", req.VideoPath),
	)

	err := o.execute(ctx, r)
	r.result.Elapsed = o.now().Sub(started)
	o.record(ctx, r, started, err)

	if err != nil {
		logging.ErrorWithContext(r.logger, "run failed", "run_failed", logging.Failure(err)...)
		return r.result, err
	}
	r.logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output_video", r.result.VideoPath),
		logging.String("subtitle_path", r.result.SubtitlePath),
		logging.Int("cue_count", r.result.CueCount),
		logging.Bool("audio_cache_hit", r.result.AudioCacheHit),
		logging.Bool("transcript_cache_hit", r.result.TranscriptCacheHit),
		logging.Duration("elapsed", r.result.Elapsed),
	)
	return r.result, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	if err := o.stage(ctx, r, stageValidate, func(ctx context.Context) error { return o.resolveRequest(r) }); err != nil {
		return err
	}
	if err := o.stage(ctx, r, stageProbe, func(ctx context.Context) error { return o.probe(ctx, r) }); err != nil {
		return err
	}
	if err := o.stage(ctx, r, stageFingerprint, func(ctx context.Context) error {
		fp, err := o.deps.Fingerprint(ctx, r.req.VideoPath)
		if err != nil {
			return err
		}
		r.fp = fp
		r.result.Fingerprint = fp
		r.logger = r.logger.With(logging.String("fingerprint", fp.Short()))
		return nil
	}); err != nil {
		return err
	}

	var lock *staging.Lock
	if err := o.stage(ctx, r, stageLock, func(ctx context.Context) error {
		var err error
		lock, err = staging.AcquireLock(ctx, o.cfg.LockDir, r.fp.String(), o.cfg.LockRetry)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return services.Wrap(services.ErrConfiguration, stageLock, "acquire", "Unable to lock content for this run", err)
		}
		return nil
	}); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.WarnWithContext(r.logger, "failed to release content lock", "lock_release_failed",
				logging.Error(err),
				logging.String("lock_path", lock.Path()),
				logging.String(logging.FieldErrorHint, "remove the stale lock file if runs for this video hang"),
			)
		}
	}()

	workDir, err := staging.CreateWorkDir(o.cfg.StagingDir, r.id)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "staging", "create work dir", "Unable to create run work directory; check paths.staging_dir", err)
	}
	r.workDir = workDir
	defer o.removeWorkDir(r)

	if err := o.stage(ctx, r, stageCache, func(ctx context.Context) error {
		o.loadCachedTranscript(ctx, r)
		return nil
	}); err != nil {
		return err
	}

	if !r.result.TranscriptCacheHit {
		if err := o.recognize(ctx, r); err != nil {
			return err
		}
	}

	var cues []subtitles.Cue
	workSRT := filepath.Join(r.workDir, r.baseName+".srt")
	if err := o.stage(ctx, r, stageConvert, func(ctx context.Context) error {
		var err error
		cues, err = subtitles.Convert(r.transcript, o.cfg.Convert)
		if err != nil {
			return err
		}
		if err := subtitles.WriteFile(workSRT, cues); err != nil {
			return err
		}
		if issues := subtitles.ValidateSRTContent(workSRT, r.duration); len(issues) > 0 {
			return services.Wrap(services.ErrConversion, stageConvert, "validate srt",
				fmt.Sprintf("Generated subtitles failed validation: %s", strings.Join(issues, "; ")), nil)
		}
		r.result.CueCount = len(cues)
		return nil
	}); err != nil {
		return err
	}

	workVideo := filepath.Join(r.workDir, filepath.Base(r.finalVideo))
	if err := o.stage(ctx, r, stageBurn, func(ctx context.Context) error {
		return o.deps.Burner.BurnSubtitles(ctx, r.req.VideoPath, workSRT, workVideo)
	}); err != nil {
		return err
	}

	return o.stage(ctx, r, stagePublish, func(ctx context.Context) error {
		return o.publish(r, workVideo, workSRT)
	})
}

// stage runs fn with the stage recorded on the context and logs its outcome.
func (o *Orchestrator) stage(ctx context.Context, r *run, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, r.logger)
	start := o.now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	err := fn(stageCtx)
	if err == nil {
		logger.Debug("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", o.now().Sub(start)),
		)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}
	logger.Debug("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorClass, services.ClassName(err)),
	)
	return err
}

func (o *Orchestrator) resolveRequest(r *run) error {
	video := strings.TrimSpace(r.req.VideoPath)
	if video == "" {
		return services.Wrap(services.ErrValidation, stageValidate, "input", "video path is required", nil)
	}
	abs, err := filepath.Abs(video)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageValidate, "input", "cannot resolve video path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageValidate, "input", "video file is not readable", err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrValidation, stageValidate, "input", fmt.Sprintf("%s is not a regular file", abs), nil)
	}
	r.req.VideoPath = abs

	ext := filepath.Ext(abs)
	base := strings.TrimSpace(r.req.BaseName)
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(abs), ext)
	}
	r.baseName = textutil.SanitizeFileName(base)
	if r.baseName == "" {
		return services.Wrap(services.ErrValidation, stageValidate, "output name", fmt.Sprintf("cannot derive an output name from %q", base), nil)
	}

	outDir := strings.TrimSpace(r.req.OutputDir)
	if outDir == "" {
		outDir = strings.TrimSpace(o.cfg.OutputDir)
	}
	if outDir == "" {
		outDir = filepath.Dir(abs)
	}
	if r.outDir, err = filepath.Abs(outDir); err != nil {
		return services.Wrap(services.ErrValidation, stageValidate, "output dir", "cannot resolve output directory", err)
	}
	if ext == "" {
		ext = ".mp4"
	}
	r.finalVideo = filepath.Join(r.outDir, r.baseName+o.cfg.VideoSuffix+ext)
	r.finalSRT = filepath.Join(r.outDir, r.baseName+".srt")
	if r.finalVideo == abs || r.finalSRT == abs {
		return services.Wrap(services.ErrValidation, stageValidate, "output name", "output would overwrite the input video", nil)
	}

	lang := strings.TrimSpace(r.req.Language)
	if lang == "" {
		lang = strings.TrimSpace(o.cfg.Language)
	}
	if r.language, err = recognition.CanonicalLanguage(lang); err != nil {
		return services.Wrap(services.ErrValidation, stageValidate, "language", fmt.Sprintf("unsupported language %q", lang), err)
	}
	return nil
}

func (o *Orchestrator) probe(ctx context.Context, r *run) error {
	if o.deps.Prober == nil {
		return nil
	}
	result, err := o.deps.Prober.Inspect(ctx, r.req.VideoPath)
	if err != nil {
		return services.Wrap(services.ErrExtraction, stageProbe, "ffprobe", "Unable to inspect video", err)
	}
	audio := result.AudioStreams()
	if len(audio) == 0 {
		return services.Wrap(services.ErrExtraction, stageProbe, "audio streams", "Video has no audio stream to transcribe", nil)
	}
	r.duration = result.Duration()
	r.result.MediaDuration = r.duration
	r.logger.Debug("probed video",
		logging.Duration("media_duration", r.duration),
		logging.Int("audio_streams", len(audio)),
		logging.String("audio_codec", audio[0].CodecName),
		logging.String("audio_language", audio[0].Tags.Language),
	)
	return nil
}

// loadCachedTranscript reuses a stored transcript. Cache problems only cost a
// fresh recognition, so they are logged and treated as a miss.
func (o *Orchestrator) loadCachedTranscript(ctx context.Context, r *run) {
	if !o.cfg.UseTranscriptCache {
		return
	}
	data, ok, err := o.deps.Cache.LoadTranscript(ctx, r.fp, o.recognitionOptions(r).CacheVariant())
	if err != nil {
		logging.WarnWithContext(r.logger, "transcript cache unavailable", "transcript_cache_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check object storage connectivity"),
			logging.String(logging.FieldImpact, "recognition runs again for this video"),
		)
		return
	}
	if !ok {
		logging.Decision(r.logger, "transcript cache miss", "transcript_cache", "miss", "no stored transcript for this content and language")
		return
	}
	transcript, err := recognition.DecodeTranscript(data)
	if err != nil {
		logging.WarnWithContext(r.logger, "ignoring unreadable cached transcript", "transcript_cache_corrupt",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `hardsub cache purge --transcript-only` for this video and language"),
			logging.String(logging.FieldImpact, "recognition runs again for this video"),
		)
		return
	}
	r.transcript = transcript
	r.result.TranscriptCacheHit = true
	logging.Decision(r.logger, "transcript cache hit", "transcript_cache", "hit", "stored transcript reused; recognition skipped")
}

// recognize ensures the audio is stored remotely and runs a recognition job.
func (o *Orchestrator) recognize(ctx context.Context, r *run) error {
	if err := o.stage(ctx, r, stageUpload, func(ctx context.Context) error {
		present, err := o.deps.Cache.Exists(ctx, r.fp)
		if err != nil {
			return err
		}
		if present {
			r.result.AudioCacheHit = true
			logging.Decision(r.logger, "audio cache hit", "audio_cache", "hit", "audio already stored for this content")
			return nil
		}
		logging.Decision(r.logger, "audio cache miss", "audio_cache", "miss", "extracting and uploading audio")

		audioPath := filepath.Join(r.workDir, "audio"+ffmpeg.AudioExtension)
		if err := o.stage(ctx, r, stageExtract, func(ctx context.Context) error {
			return o.deps.Extractor.ExtractAudio(ctx, r.req.VideoPath, audioPath)
		}); err != nil {
			return err
		}
		uploaded, err := o.deps.Cache.Upload(ctx, r.fp, audioPath)
		if err != nil {
			return err
		}
		r.result.Uploaded = uploaded
		return nil
	}); err != nil {
		return err
	}
	if r.result.Uploaded && o.cfg.DeleteUploaded {
		defer o.deleteUploaded(ctx, r)
	}

	return o.stage(ctx, r, stageRecognize, func(ctx context.Context) error {
		locator, err := o.deps.Cache.LocatorFor(ctx, r.fp)
		if err != nil {
			return err
		}
		job, err := o.deps.Recognizer.Submit(ctx, locator, o.recognitionOptions(r))
		if err != nil {
			return err
		}
		r.result.JobID = job.ID
		ctx = services.WithJobID(ctx, job.ID)
		maxWait := recognition.MaxWaitFor(r.duration, o.cfg.Wait)
		logging.WithContext(ctx, r.logger).Info("waiting for recognition",
			logging.String(logging.FieldEventType, "recognition_wait"),
			logging.Duration("max_wait", maxWait),
		)
		if err := o.deps.Recognizer.Wait(ctx, job, maxWait); err != nil {
			return err
		}
		transcript, err := o.deps.Recognizer.FetchResult(ctx, job)
		if err != nil {
			return err
		}
		r.transcript = transcript
		o.storeTranscript(ctx, r)
		return nil
	})
}

// recognitionOptions are the settings a job for r is submitted with. The
// transcript cache is scoped by the same value.
func (o *Orchestrator) recognitionOptions(r *run) recognition.Options {
	opts := o.cfg.RecognitionOptions
	opts.LanguageHint = r.language
	return opts
}

func (o *Orchestrator) storeTranscript(ctx context.Context, r *run) {
	if !o.cfg.UseTranscriptCache {
		return
	}
	data, err := recognition.EncodeTranscript(r.transcript)
	if err == nil {
		err = o.deps.Cache.StoreTranscript(ctx, r.fp, o.recognitionOptions(r).CacheVariant(), data)
	}
	if err != nil {
		logging.WarnWithContext(r.logger, "failed to cache transcript", "transcript_cache_store_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check object storage write permissions"),
			logging.String(logging.FieldImpact, "the next run for this video repeats recognition"),
		)
	}
}

func (o *Orchestrator) deleteUploaded(ctx context.Context, r *run) {
	if err := o.deps.Cache.Delete(context.WithoutCancel(ctx), r.fp); err != nil {
		logging.WarnWithContext(r.logger, "failed to delete uploaded audio", "audio_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the object manually or run `hardsub cache purge`"),
			logging.String(logging.FieldImpact, "audio stays in the bucket"),
		)
		return
	}
	r.logger.Debug("deleted uploaded audio", logging.String(logging.FieldEventType, "audio_deleted"))
}

func (o *Orchestrator) removeWorkDir(r *run) {
	if r.workDir == "" {
		return
	}
	if err := os.RemoveAll(r.workDir); err != nil {
		logging.WarnWithContext(r.logger, "failed to remove work directory", "workdir_cleanup_failed",
			logging.Error(err),
			logging.String("work_dir", r.workDir),
			logging.String(logging.FieldErrorHint, "stale directories are swept on the next run"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}

// record writes the run to history; failures are logged and ignored.
func (o *Orchestrator) record(ctx context.Context, r *run, started time.Time, runErr error) {
	if o.deps.History == nil {
		return
	}
	entry := history.Run{
		RunID:              r.id,
		VideoPath:          r.req.VideoPath,
		Status:             history.StatusSucceeded,
		OutputVideo:        r.result.VideoPath,
		SubtitlePath:       r.result.SubtitlePath,
		AudioCacheHit:      r.result.AudioCacheHit,
		TranscriptCacheHit: r.result.TranscriptCacheHit,
		CueCount:           r.result.CueCount,
		StartedAt:          started,
		FinishedAt:         started.Add(r.result.Elapsed),
	}
	if runErr != nil {
		entry.Status = history.StatusFailed
		if errors.Is(runErr, context.Canceled) {
			entry.Status = history.StatusCancelled
		}
		entry.ErrorClass = services.ClassName(runErr)
		entry.ErrorMessage = runErr.Error()
		entry.CueCount = 0
	}
	if _, err := o.deps.History.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(r.logger, "failed to record run history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
			logging.String(logging.FieldImpact, "run missing from `hardsub history`"),
		)
	}
}
