package pipeline

import (
	"errors"
	"io/fs"
	"os"

	"hardsub/internal/fileutil"
	"hardsub/internal/logging"
	"hardsub/internal/services"
)

// moveFile is swapped in tests to inject publish failures.
var moveFile = fileutil.Move

// backupSuffix marks a previous output set aside while a run publishes.
const backupSuffix = ".hardsub-prev"

// publish moves the burned video and then the subtitle file into the output
// directory. Outputs from an earlier run are renamed aside first; on failure
// this run's files are removed and the earlier ones put back, on success the
// earlier ones are deleted.
func (o *Orchestrator) publish(r *run, workVideo, workSRT string) error {
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return services.Wrap(services.ErrMux, stagePublish, "output dir", "Unable to create output directory", err)
	}

	videoBackup, err := stash(r.finalVideo)
	if err != nil {
		return services.Wrap(services.ErrMux, stagePublish, "stash video", "Unable to set aside the existing output video", err)
	}
	srtBackup, err := stash(r.finalSRT)
	if err != nil {
		o.restore(r, r.finalVideo, videoBackup)
		return services.Wrap(services.ErrMux, stagePublish, "stash subtitles", "Unable to set aside the existing subtitle file", err)
	}
	// Restoring a backup replaces this run's file, so only a video with no
	// predecessor needs removing.
	rollback := func(videoPublished bool) {
		if videoPublished && videoBackup == "" {
			if rmErr := os.Remove(r.finalVideo); rmErr != nil && !os.IsNotExist(rmErr) {
				logging.WarnWithContext(r.logger, "failed to roll back published video", "publish_rollback_failed",
					logging.Error(rmErr),
					logging.String("output_video", r.finalVideo),
					logging.String(logging.FieldErrorHint, "delete the partial output manually"),
					logging.String(logging.FieldImpact, "a video without its subtitle file remains in the output directory"),
				)
			}
		}
		o.restore(r, r.finalVideo, videoBackup)
		o.restore(r, r.finalSRT, srtBackup)
	}

	if err := moveFile(workVideo, r.finalVideo); err != nil {
		rollback(false)
		return services.Wrap(services.ErrMux, stagePublish, "move video", "Unable to publish burned video", err)
	}
	if err := moveFile(workSRT, r.finalSRT); err != nil {
		rollback(true)
		return services.Wrap(services.ErrMux, stagePublish, "move subtitles", "Unable to publish subtitle file", err)
	}

	for _, backup := range []string{videoBackup, srtBackup} {
		if backup == "" {
			continue
		}
		if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
			logging.WarnWithContext(r.logger, "failed to remove previous output", "publish_backup_cleanup_failed",
				logging.Error(err),
				logging.String("backup_path", backup),
				logging.String(logging.FieldErrorHint, "delete the file manually"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
	r.result.VideoPath = r.finalVideo
	r.result.SubtitlePath = r.finalSRT
	return nil
}

// stash renames an existing file at path aside and returns the backup path,
// or "" when there was nothing to keep.
func stash(path string) (string, error) {
	backup := path + backupSuffix
	if err := os.Rename(path, backup); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return backup, nil
}

func (o *Orchestrator) restore(r *run, path, backup string) {
	if backup == "" {
		return
	}
	if err := os.Rename(backup, path); err != nil {
		logging.WarnWithContext(r.logger, "failed to restore previous output", "publish_restore_failed",
			logging.Error(err),
			logging.String("output_path", path),
			logging.String("backup_path", backup),
			logging.String(logging.FieldErrorHint, "rename the backup file back manually"),
			logging.String(logging.FieldImpact, "the previous output is only available under its backup name"),
		)
	}
}
