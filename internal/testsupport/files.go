package testsupport

import (
	"bytes"
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"
)

// WriteVideo creates a placeholder media file of size bytes at path, making
// parent directories as needed. The content is derived from the file name so
// two placeholders with different names have different fingerprints.
func WriteVideo(t testing.TB, path string, size int) []byte {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(filepath.Base(path)))
	seed := h.Sum(nil)
	data := bytes.Repeat(seed, size/len(seed)+1)[:size]

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return data
}
