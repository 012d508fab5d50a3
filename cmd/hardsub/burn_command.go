package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hardsub/internal/config"
	"hardsub/internal/history"
	"hardsub/internal/logging"
	"hardsub/internal/pipeline"
	"hardsub/internal/preflight"
	"hardsub/internal/services"
	"hardsub/internal/staging"
)

type burnOptions struct {
	outputDir     string
	name          string
	language      string
	jsonOutput    bool
	skipPreflight bool
}

func newBurnCommand(ctx *commandContext) *cobra.Command {
	var opts burnOptions

	cmd := &cobra.Command{
		Use:   "burn <video>",
		Short: "Transcribe a video and burn the subtitles into a new copy",
		Long: `Transcribe a video and burn the subtitles into a new copy.

Audio is extracted, uploaded once per distinct video content, and sent to the
recognition service. The resulting transcript becomes an SRT file and a new
video with the subtitles rendered into the picture. Both files land in the
output directory; on failure neither does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBurn(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for the burned video and SRT (default: paths.output_dir or the video's directory)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Base name for the outputs (default: the video's file name)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Language hint such as en or zh (default: recognition.language)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the run result as JSON")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Skip binary, directory, and bucket checks before the run")
	return cmd
}

func runBurn(cmd *cobra.Command, ctx *commandContext, video string, opts burnOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	runCtx := cmd.Context()

	if err := cfg.RequireCloudCredentials(); err != nil {
		return services.Wrap(services.ErrConfiguration, "setup", "credentials", err.Error(), nil)
	}

	staging.CleanStale(runCtx, cfg.Paths.StagingDir, time.Duration(cfg.Paths.StaleWorkDirHours)*time.Hour, logger)

	bucket, err := newBucket(cfg)
	if err != nil {
		return err
	}
	if !opts.skipPreflight {
		if err := requirePreflight(cmd, cfg, bucket); err != nil {
			return err
		}
	}

	var hist *history.Store
	if store, err := history.Open(cfg.HistoryPath()); err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
			logging.String(logging.FieldImpact, "this run will not appear in `hardsub history`"),
		)
	} else {
		hist = store
		defer hist.Close()
	}

	orchestrator, err := newOrchestrator(cfg, newObjectCache(cfg, bucket, logger), hist, logger)
	if err != nil {
		return err
	}

	result, err := orchestrator.Run(runCtx, pipeline.Request{
		VideoPath: video,
		OutputDir: opts.outputDir,
		BaseName:  opts.name,
		Language:  opts.language,
	})
	if err != nil {
		return err
	}
	if opts.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), burnJSON(result))
	}
	printBurnResult(cmd.OutOrStdout(), result)
	return nil
}

func requirePreflight(cmd *cobra.Command, cfg *config.Config, bucket preflight.Pinger) error {
	results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Bucket: bucket})
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, r := range failed {
		details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "checks",
		fmt.Sprintf("Preflight failed (%s); run `hardsub doctor` for details", strings.Join(details, "; ")), nil)
}

type burnResultJSON struct {
	RunID              string  `json:"run_id"`
	Fingerprint        string  `json:"fingerprint"`
	VideoPath          string  `json:"video_path"`
	SubtitlePath       string  `json:"subtitle_path"`
	CueCount           int     `json:"cue_count"`
	AudioCacheHit      bool    `json:"audio_cache_hit"`
	TranscriptCacheHit bool    `json:"transcript_cache_hit"`
	Uploaded           bool    `json:"uploaded"`
	JobID              string  `json:"job_id,omitempty"`
	MediaSeconds       float64 `json:"media_seconds"`
	ElapsedSeconds     float64 `json:"elapsed_seconds"`
}

func burnJSON(r pipeline.Result) burnResultJSON {
	return burnResultJSON{
		RunID:              r.RunID,
		Fingerprint:        r.Fingerprint.String(),
		VideoPath:          r.VideoPath,
		SubtitlePath:       r.SubtitlePath,
		CueCount:           r.CueCount,
		AudioCacheHit:      r.AudioCacheHit,
		TranscriptCacheHit: r.TranscriptCacheHit,
		Uploaded:           r.Uploaded,
		JobID:              r.JobID,
		MediaSeconds:       r.MediaDuration.Seconds(),
		ElapsedSeconds:     r.Elapsed.Seconds(),
	}
}

func printBurnResult(out io.Writer, r pipeline.Result) {
	fmt.Fprintf(out, "Video:      %s\n", r.VideoPath)
	fmt.Fprintf(out, "Subtitles:  %s\n", r.SubtitlePath)
	fmt.Fprintf(out, "Cues:       %d\n", r.CueCount)
	fmt.Fprintf(out, "Audio:      %s\n", cacheLabel(r.AudioCacheHit, r.TranscriptCacheHit, r.Uploaded))
	fmt.Fprintf(out, "Transcript: %s\n", hitMiss(r.TranscriptCacheHit))
	fmt.Fprintf(out, "Elapsed:    %s\n", r.Elapsed.Round(time.Second))
}

func cacheLabel(audioHit, transcriptHit, uploaded bool) string {
	switch {
	case transcriptHit:
		return "not needed"
	case audioHit:
		return "cache hit"
	case uploaded:
		return "uploaded"
	default:
		return "uploaded by another run"
	}
}

func hitMiss(hit bool) string {
	if hit {
		return "cache hit"
	}
	return "recognized"
}
