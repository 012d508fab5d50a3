package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hardsub/internal/deps"
	"hardsub/internal/testsupport"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 1); !result.Passed {
		t.Fatalf("expected pass with a 1-byte minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, ^uint64(0)); result.Passed {
		t.Fatal("expected failure for an impossible minimum")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for a missing path")
	}
}

func TestCheckCredentials(t *testing.T) {
	if result := CheckCredentials(testsupport.NewConfig(t)); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	result := CheckCredentials(testsupport.NewConfig(t, testsupport.WithoutCredentials()))
	if result.Passed || !strings.Contains(result.Detail, "access_key_id") {
		t.Fatalf("expected missing key failure, got %+v", result)
	}
}

func TestCheckBucket(t *testing.T) {
	if result := CheckBucket(context.Background(), "media", fakePinger{}); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	result := CheckBucket(context.Background(), "media", fakePinger{err: context.DeadlineExceeded})
	if result.Passed || !strings.Contains(result.Detail, "timed out") {
		t.Fatalf("expected timeout summary, got %+v", result)
	}
	result = CheckBucket(context.Background(), "media", fakePinger{err: errors.New("access denied")})
	if result.Passed || result.Detail != "access denied" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestFromDependency(t *testing.T) {
	tests := []struct {
		status     deps.Status
		wantPassed bool
		wantDetail string
	}{
		{deps.Status{Name: "FFmpeg", Available: true, Path: "/usr/bin/ffmpeg", Version: "ffmpeg version 6"}, true, "ffmpeg version 6"},
		{deps.Status{Name: "FFmpeg", Available: true, Path: "/usr/bin/ffmpeg"}, true, "/usr/bin/ffmpeg"},
		{deps.Status{Name: "FFmpeg", Detail: "binary \"ffmpeg\" not found"}, false, "binary \"ffmpeg\" not found"},
		{deps.Status{Name: "extra", Optional: true, Detail: "missing"}, true, "missing"},
	}
	for _, tt := range tests {
		got := FromDependency(tt.status)
		if got.Passed != tt.wantPassed || got.Detail != tt.wantDetail {
			t.Errorf("FromDependency(%+v) = %+v", tt.status, got)
		}
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReadyConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg, Options{Bucket: fakePinger{}, MinFreeBytes: 1})
	names := make(map[string]bool)
	for _, r := range results {
		names[r.Name] = true
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	for _, want := range []string{"FFmpeg", "FFprobe", "Staging directory", "State directory", "Output directory", "Staging free space", "Cloud credentials", "Object storage"} {
		if !names[want] {
			t.Errorf("missing check %q", want)
		}
	}
}

func TestRunAll_SkipsBucketWithoutCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithoutCredentials())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	results := RunAll(context.Background(), cfg, Options{Bucket: fakePinger{err: errors.New("unreachable")}, MinFreeBytes: 1})
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Cloud credentials" {
		t.Fatalf("failed = %+v", failed)
	}
}
