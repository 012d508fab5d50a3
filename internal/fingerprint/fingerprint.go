package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"hardsub/internal/services"
)

// Size is the digest length in bytes.
const Size = sha256.Size

const readBufferSize = 1 << 20

// Fingerprint is a fixed-length content digest.
type Fingerprint [Size]byte

// String returns the lowercase hex form used in remote object names.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first twelve hex characters for log lines.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

// IsZero reports whether the fingerprint was never computed.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// Parse decodes a hex fingerprint.
func Parse(value string) (Fingerprint, error) {
	var fp Fingerprint
	raw, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return fp, fmt.Errorf("decode fingerprint: %w", err)
	}
	if len(raw) != Size {
		return fp, fmt.Errorf("fingerprint must be %d bytes, got %d", Size, len(raw))
	}
	copy(fp[:], raw)
	return fp, nil
}

// Reader hashes everything readable from r.
func Reader(ctx context.Context, r io.Reader) (Fingerprint, error) {
	var fp Fingerprint
	hasher := sha256.New()
	buf := make([]byte, readBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return fp, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fp, err
		}
	}
	copy(fp[:], hasher.Sum(nil))
	return fp, nil
}

// File fingerprints the file at path. Any I/O failure is classified as a
// fingerprint error.
func File(ctx context.Context, path string) (Fingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, services.Wrap(services.ErrFingerprint, "fingerprint", "open", "Unable to open source video", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Fingerprint{}, services.Wrap(services.ErrFingerprint, "fingerprint", "stat", "Unable to stat source video", err)
	}
	if info.IsDir() {
		return Fingerprint{}, services.Wrap(services.ErrFingerprint, "fingerprint", "stat", fmt.Sprintf("%s is a directory", path), nil)
	}

	fp, err := Reader(ctx, file)
	if err != nil {
		if ctx.Err() != nil {
			return Fingerprint{}, err
		}
		return Fingerprint{}, services.Wrap(services.ErrFingerprint, "fingerprint", "read", "Unable to read source video", err)
	}
	return fp, nil
}
