package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hardsub/internal/config"
	"hardsub/internal/fingerprint"
	"hardsub/internal/objectcache"
	"hardsub/internal/recognition"
	"hardsub/internal/services"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and purge remote cache entries",
	}
	cacheCmd.AddCommand(newCacheStatusCommand(ctx))
	cacheCmd.AddCommand(newCachePurgeCommand(ctx))
	return cacheCmd
}

func newCacheStatusCommand(ctx *commandContext) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "status <video|fingerprint>",
		Short: "Show which cache entries exist for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := cacheForCommand(ctx)
			if err != nil {
				return err
			}
			fp, err := resolveFingerprint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			variant, err := transcriptVariant(ctx, lang)
			if err != nil {
				return err
			}
			status, err := cache.Status(cmd.Context(), fp, variant)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fingerprint: %s\n", fp)
			fmt.Fprintf(out, "Transcript variant: %s\n", variant)
			writeTable(out,
				[]column{{title: "Entry"}, {title: "Key"}, {title: "Present"}},
				[][]string{
					{"Audio", status.AudioKey, yesNo(status.AudioPresent)},
					{"Transcript", status.TranscriptKey, yesNo(status.TranscriptPresent)},
				},
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "language", "", "Transcript language to check (defaults to recognition.language)")
	return cmd
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	var audioOnly bool
	var transcriptOnly bool
	var lang string

	cmd := &cobra.Command{
		Use:   "purge <video|fingerprint>",
		Short: "Delete cached audio and transcript for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if audioOnly && transcriptOnly {
				return fmt.Errorf("--audio-only and --transcript-only are mutually exclusive")
			}
			cache, err := cacheForCommand(ctx)
			if err != nil {
				return err
			}
			fp, err := resolveFingerprint(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !transcriptOnly {
				if err := cache.Delete(cmd.Context(), fp); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %s\n", cache.AudioKey(fp))
			}
			if !audioOnly {
				variant, err := transcriptVariant(ctx, lang)
				if err != nil {
					return err
				}
				if err := cache.DeleteTranscript(cmd.Context(), fp, variant); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %s\n", cache.TranscriptKey(fp, variant))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&audioOnly, "audio-only", false, "Only delete the cached audio")
	cmd.Flags().BoolVar(&transcriptOnly, "transcript-only", false, "Only delete the cached transcript")
	cmd.Flags().StringVar(&lang, "language", "", "Transcript language to delete (defaults to recognition.language)")
	return cmd
}

func cacheForCommand(ctx *commandContext) (*objectcache.Cache, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireCloudCredentials(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "setup", "credentials", err.Error(), nil)
	}
	bucket, err := newBucket(cfg)
	if err != nil {
		return nil, err
	}
	return newObjectCache(cfg, bucket, logger), nil
}

// transcriptVariant names the cached transcript a run with the configured
// recognition settings and lang would use.
func transcriptVariant(ctx *commandContext, lang string) (string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(lang) == "" {
		lang = cfg.Recognition.Language
	}
	canonical, err := recognition.CanonicalLanguage(lang)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "cache", "language", fmt.Sprintf("unsupported language %q", lang), err)
	}
	opts := pipelineConfig(cfg).RecognitionOptions
	opts.LanguageHint = canonical
	return opts.CacheVariant(), nil
}

// resolveFingerprint accepts either a fingerprint in hex or a path to a video.
func resolveFingerprint(ctx context.Context, arg string) (fingerprint.Fingerprint, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return fingerprint.Fingerprint{}, fmt.Errorf("video path or fingerprint is required")
	}
	path, err := config.ExpandPath(arg)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return fingerprint.File(ctx, path)
	}
	fp, err := fingerprint.Parse(arg)
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("%q is neither a readable file nor a fingerprint", arg)
	}
	return fp, nil
}
