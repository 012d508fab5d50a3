package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hardsub/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if pruneDays > 0 {
				cutoff := time.Now().Add(-time.Duration(pruneDays) * 24 * time.Hour)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d run(s) older than %d day(s)\n", removed, pruneDays)
				return nil
			}

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), historyJSON(runs))
			}
			printHistory(out, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output runs as JSON")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete runs older than this many days instead of listing")
	return cmd
}

func printHistory(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		detail := filepath.Base(run.OutputVideo)
		if run.Status != history.StatusSucceeded {
			detail = run.ErrorClass
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			filepath.Base(run.VideoPath),
			string(run.Status),
			strconv.Itoa(run.CueCount),
			cacheSummary(run),
			run.Duration().Round(time.Second).String(),
			detail,
		})
	}
	writeTable(out, []column{
		{title: "Started"},
		{title: "Video"},
		{title: "Status"},
		{title: "Cues", numeric: true},
		{title: "Cache"},
		{title: "Took", numeric: true},
		{title: "Result"},
	}, rows)
}

func cacheSummary(run history.Run) string {
	switch {
	case run.TranscriptCacheHit:
		return "transcript"
	case run.AudioCacheHit:
		return "audio"
	default:
		return "-"
	}
}

type historyRunJSON struct {
	RunID              string    `json:"run_id"`
	VideoPath          string    `json:"video_path"`
	Status             string    `json:"status"`
	ErrorClass         string    `json:"error_class,omitempty"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	OutputVideo        string    `json:"output_video,omitempty"`
	SubtitlePath       string    `json:"subtitle_path,omitempty"`
	AudioCacheHit      bool      `json:"audio_cache_hit"`
	TranscriptCacheHit bool      `json:"transcript_cache_hit"`
	CueCount           int       `json:"cue_count"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
}

func historyJSON(runs []history.Run) []historyRunJSON {
	out := make([]historyRunJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, historyRunJSON{
			RunID:              run.RunID,
			VideoPath:          run.VideoPath,
			Status:             string(run.Status),
			ErrorClass:         run.ErrorClass,
			ErrorMessage:       run.ErrorMessage,
			OutputVideo:        run.OutputVideo,
			SubtitlePath:       run.SubtitlePath,
			AudioCacheHit:      run.AudioCacheHit,
			TranscriptCacheHit: run.TranscriptCacheHit,
			CueCount:           run.CueCount,
			StartedAt:          run.StartedAt,
			FinishedAt:         run.FinishedAt,
		})
	}
	return out
}
