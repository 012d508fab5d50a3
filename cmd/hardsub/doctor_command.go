package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hardsub/internal/config"
	"hardsub/internal/preflight"
	"hardsub/internal/services"
	"hardsub/internal/staging"
	"hardsub/internal/textutil"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var skipBucket bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, credentials, and the bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := newDoctorReport(cmd.OutOrStdout())
			fmt.Fprintf(report.out, "Config: %s\n\n", ctx.configPath)

			var deps []preflight.Result
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				deps = append(deps, preflight.FromDependency(status))
			}
			report.checks("Dependencies", deps)

			dirs := []preflight.Result{
				preflight.CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
				preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
				preflight.CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, preflight.DefaultMinFreeBytes),
			}
			if cfg.Paths.OutputDir != "" {
				dirs = append(dirs, preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
			}
			report.checks("Directories", dirs)

			cloud := []preflight.Result{preflight.CheckCredentials(cfg)}
			if cloud[0].Passed && !skipBucket {
				if bucket, err := newBucket(cfg); err != nil {
					cloud = append(cloud, preflight.Result{Name: "Object storage", Detail: err.Error()})
				} else {
					cloud = append(cloud, preflight.CheckBucket(cmd.Context(), cfg.ObjectStorage.Bucket, bucket))
				}
			}
			report.checks("Cloud", cloud)

			reportWorkDirs(report, cfg)

			if report.failed > 0 {
				return services.Wrap(services.ErrConfiguration, "doctor", "checks", fmt.Sprintf("%d check(s) failed", report.failed), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipBucket, "skip-bucket", false, "Do not contact object storage")
	return cmd
}

// reportWorkDirs summarizes leftover run directories. These never fail the
// doctor run; the next burn sweeps stale ones.
func reportWorkDirs(report *doctorReport, cfg *config.Config) {
	report.section("Work directories")
	dirs, err := staging.ListWorkDirs(cfg.Paths.StagingDir)
	if err != nil {
		report.status("Staging", statusWarn, err.Error())
		return
	}
	if len(dirs) == 0 {
		report.status("Active", statusOK, "none")
		return
	}

	maxAge := time.Duration(cfg.Paths.StaleWorkDirHours) * time.Hour
	now := time.Now()
	var total int64
	stale := 0
	for _, dir := range dirs {
		total += dir.Size
		if dir.StaleAt(now, maxAge) {
			stale++
		}
	}
	report.status("Active", statusInfo, fmt.Sprintf("%d (%s)", len(dirs), textutil.FormatBytes(total)))
	if stale > 0 {
		report.status("Stale", statusWarn, fmt.Sprintf("%d, removed on the next burn", stale))
	}
}
