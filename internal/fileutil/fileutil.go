// Package fileutil moves finished artifacts from a run work directory into
// the output directory.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// rename is swapped in tests to simulate cross-device moves.
var rename = os.Rename

// Move renames src to dst, replacing dst. When the two paths are on
// different filesystems the file is copied next to dst, checked against the
// source digest, renamed into place, and src is removed. Readers of dst
// never observe a partial file.
func Move(src, dst string) error {
	err := rename(src, dst)
	if err == nil || !errors.Is(err, unix.EXDEV) {
		return err
	}

	tmp, err := copyBeside(src, dst)
	if err != nil {
		return fmt.Errorf("copy across devices: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize move: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// copyBeside copies src into a hidden temp file in dst's directory, syncs
// it, and verifies the written bytes hash the same as the source. It returns
// the temp path.
func copyBeside(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return "", err
	}

	out, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.partial")
	if err != nil {
		return "", err
	}
	tmp := out.Name()
	fail := func(err error) (string, error) {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", err
	}

	srcSum := sha256.New()
	n, err := io.Copy(out, io.TeeReader(in, srcSum))
	if err != nil {
		return fail(err)
	}
	if n != info.Size() {
		return fail(fmt.Errorf("short copy: %d of %d bytes", n, info.Size()))
	}
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		return fail(err)
	}
	if err := out.Sync(); err != nil {
		return fail(err)
	}
	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return fail(err)
	}
	dstSum := sha256.New()
	if _, err := io.Copy(dstSum, out); err != nil {
		return fail(err)
	}
	if !bytes.Equal(srcSum.Sum(nil), dstSum.Sum(nil)) {
		return fail(errors.New("copied file does not match source digest"))
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
