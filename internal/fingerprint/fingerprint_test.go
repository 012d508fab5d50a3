package fingerprint_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hardsub/internal/fingerprint"
	"hardsub/internal/services"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFileIsDeterministicAcrossNames(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte("frame"), 600_000)
	a := writeFile(t, dir, "a.mkv", data)
	b := writeFile(t, dir, "renamed copy.mkv", data)

	fpA, err := fingerprint.File(context.Background(), a)
	if err != nil {
		t.Fatalf("File(a): %v", err)
	}
	fpB, err := fingerprint.File(context.Background(), b)
	if err != nil {
		t.Fatalf("File(b): %v", err)
	}
	if fpA != fpB {
		t.Fatalf("expected identical fingerprints, got %s and %s", fpA, fpB)
	}
	again, err := fingerprint.File(context.Background(), a)
	if err != nil {
		t.Fatalf("File(a) again: %v", err)
	}
	if again != fpA {
		t.Fatal("expected repeated fingerprint to match")
	}
}

func TestSingleByteChangeAltersFingerprint(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 4096)
	base, err := fingerprint.Reader(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	data[2048] ^= 0x01
	changed, err := fingerprint.Reader(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	if base == changed {
		t.Fatal("expected fingerprint to change")
	}
}

func TestKnownDigest(t *testing.T) {
	fp, err := fingerprint.Reader(context.Background(), strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("Reader: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if fp.String() != want {
		t.Fatalf("digest = %s, want %s", fp, want)
	}
	if fp.Short() != want[:12] {
		t.Fatalf("short = %s", fp.Short())
	}
	parsed, err := fingerprint.Parse(want)
	if err != nil || parsed != fp {
		t.Fatalf("Parse round trip failed: %v", err)
	}
}

func TestParseRejectsWrongLength(t *testing.T) {
	if _, err := fingerprint.Parse("abcd"); err == nil {
		t.Fatal("expected length error")
	}
	if _, err := fingerprint.Parse("zz"); err == nil {
		t.Fatal("expected hex error")
	}
}

func TestFileMissingIsFingerprintError(t *testing.T) {
	_, err := fingerprint.File(context.Background(), filepath.Join(t.TempDir(), "missing.mkv"))
	if !errors.Is(err, services.ErrFingerprint) {
		t.Fatalf("expected ErrFingerprint, got %v", err)
	}
	if services.ExitCode(err) != services.ExitFingerprint {
		t.Fatalf("unexpected exit code %d", services.ExitCode(err))
	}
}

func TestFileRejectsDirectory(t *testing.T) {
	_, err := fingerprint.File(context.Background(), t.TempDir())
	if !errors.Is(err, services.ErrFingerprint) {
		t.Fatalf("expected ErrFingerprint, got %v", err)
	}
}

func TestReaderHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fingerprint.Reader(ctx, strings.NewReader("data"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
