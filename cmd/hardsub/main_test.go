package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hardsub/internal/config"
	"hardsub/internal/fingerprint"
	"hardsub/internal/history"
	"hardsub/internal/preflight"
	"hardsub/internal/services"
	"hardsub/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	for _, key := range []string{"ALIBABA_CLOUD_ACCESS_KEY_ID", "ALIBABA_CLOUD_ACCESS_KEY_SECRET", "OSS_BUCKET", "NLS_APP_KEY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	data, err := cfg.Encode(true)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config load", &configError{err: errors.New("parse config: bad toml")}, services.ExitConfiguration},
		{"upload", services.Wrap(services.ErrUpload, "upload", "put", "denied", nil), services.ExitUpload},
		{"recognition", fmt.Errorf("wrapped: %w", services.ErrRecognitionTimeout), services.ExitRecognition},
		{"cancelled", fmt.Errorf("burn: %w", context.Canceled), services.ExitCancelled},
		{"plain", errors.New("boom"), services.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfigInitShowAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "test-access-secret") {
		t.Fatalf("secret leaked in config show output:\n%s", out)
	}
	requireContains(t, out, "test-bucket")

	out, _, err = runCLI(t, []string{"config", "show", "--secrets"}, env.configPath)
	if err != nil {
		t.Fatalf("config show --secrets: %v", err)
	}
	requireContains(t, out, "test-access-secret")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestInvalidConfigIsConfigurationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[paths\nstaging_dir ="), 0o600); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"history"}, path)
	if err == nil {
		t.Fatal("expected config error")
	}
	if exitCode(err) != services.ExitConfiguration {
		t.Fatalf("exit code = %d, want %d", exitCode(err), services.ExitConfiguration)
	}
}

func TestFingerprintCommand(t *testing.T) {
	video := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteVideo(t, video, 4096)
	want, err := fingerprint.File(context.Background(), video)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}

	out, _, err := runCLI(t, []string{"fingerprint", video}, "")
	if err != nil {
		t.Fatalf("fingerprint command: %v", err)
	}
	requireContains(t, out, want.String())
}

func TestResolveFingerprintAcceptsHex(t *testing.T) {
	video := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteVideo(t, video, 1024)
	fromFile, err := resolveFingerprint(context.Background(), video)
	if err != nil {
		t.Fatalf("resolve path: %v", err)
	}
	fromHex, err := resolveFingerprint(context.Background(), fromFile.String())
	if err != nil {
		t.Fatalf("resolve hex: %v", err)
	}
	if fromHex != fromFile {
		t.Fatal("hex and file resolution disagree")
	}
	if _, err := resolveFingerprint(context.Background(), "not-a-file-or-hex"); err == nil {
		t.Fatal("expected error for unknown argument")
	}
}

func TestHistoryCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store := testsupport.MustOpenHistory(t, env.cfg)
	started := time.Now().Add(-time.Hour)
	runs := []history.Run{
		{RunID: "a", VideoPath: "/videos/first.mp4", Status: history.StatusSucceeded, OutputVideo: "/out/first.subtitled.mp4", CueCount: 12, AudioCacheHit: true, StartedAt: started, FinishedAt: started.Add(2 * time.Minute)},
		{RunID: "b", VideoPath: "/videos/second.mp4", Status: history.StatusFailed, ErrorClass: "recognition_timeout", StartedAt: started.Add(time.Minute), FinishedAt: started.Add(3 * time.Minute)},
	}
	for _, run := range runs {
		if _, err := store.Record(context.Background(), run); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "first.mp4")
	requireContains(t, out, "recognition_timeout")
	requireContains(t, out, "first.subtitled.mp4")
	if strings.Index(out, "second.mp4") > strings.Index(out, "first.mp4") {
		t.Fatalf("expected newest run first:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"history", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var decoded []historyRunJSON
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(decoded) != 1 || decoded[0].RunID != "b" || decoded[0].Status != "failed" {
		t.Fatalf("unexpected json runs: %+v", decoded)
	}

	out, _, err = runCLI(t, []string{"history", "--prune-days", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history --prune-days: %v", err)
	}
	requireContains(t, out, "Pruned 0 run(s)")
}

func TestHistoryCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestBurnRequiresCredentials(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutCredentials())
	video := filepath.Join(env.baseDir, "clip.mp4")
	testsupport.WriteVideo(t, video, 1024)

	_, _, err := runCLI(t, []string{"burn", video}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if exitCode(err) != services.ExitConfiguration {
		t.Fatalf("exit code = %d", exitCode(err))
	}
	entries, _ := os.ReadDir(env.cfg.Paths.OutputDir)
	if len(entries) != 0 {
		t.Fatalf("unexpected outputs: %v", entries)
	}
}

func TestDoctorReportsMissingCredentials(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutCredentials(), testsupport.WithStubbedBinaries())

	out, _, err := runCLI(t, []string{"doctor", "--skip-bucket"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "[ERROR] aliyun.access_key_id is required")
	requireContains(t, out, "== Work directories ==")
	if strings.Contains(out, "\x1b[") {
		t.Fatal("colour codes written to a non-terminal")
	}
}

func TestFormatStatusLine(t *testing.T) {
	got := formatStatusLine("FFmpeg", statusOK, "ffmpeg version 6")
	want := "  FFmpeg:              [OK] ffmpeg version 6"
	if got != want {
		t.Fatalf("formatStatusLine = %q, want %q", got, want)
	}
}

func TestDoctorReportCountsFailures(t *testing.T) {
	var buf bytes.Buffer
	report := &doctorReport{out: &buf, colorize: true}
	report.checks("Cloud", []preflight.Result{
		{Name: "Credentials", Passed: true},
		{Name: "Bucket", Detail: "access denied"},
	})
	if report.failed != 1 {
		t.Fatalf("failed = %d, want 1", report.failed)
	}
	out := buf.String()
	requireContains(t, out, ansiRed+"  Bucket:")
	requireContains(t, out, "[ERROR] access denied"+ansiReset)
	requireContains(t, out, ansiGreen+"  Credentials:")
}

func TestCacheLabel(t *testing.T) {
	tests := []struct {
		audioHit, transcriptHit, uploaded bool
		want                              string
	}{
		{false, true, false, "not needed"},
		{true, false, false, "cache hit"},
		{false, false, true, "uploaded"},
		{false, false, false, "uploaded by another run"},
	}
	for _, tt := range tests {
		if got := cacheLabel(tt.audioHit, tt.transcriptHit, tt.uploaded); got != tt.want {
			t.Errorf("cacheLabel(%v, %v, %v) = %q, want %q", tt.audioHit, tt.transcriptHit, tt.uploaded, got, tt.want)
		}
	}
}
