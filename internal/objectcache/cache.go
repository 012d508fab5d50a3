package objectcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hardsub/internal/fingerprint"
	"hardsub/internal/logging"
	"hardsub/internal/services"
)

const (
	audioExtension      = ".mp3"
	transcriptExtension = ".json"
	audioContentType    = "audio/mpeg"
	jsonContentType     = "application/json"
)

// Config controls object naming and locator lifetime.
type Config struct {
	AudioPrefix      string
	TranscriptPrefix string
	URLExpiry        time.Duration
}

// Cache maps fingerprints to remote audio and transcript objects.
type Cache struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
}

// Status summarizes the remote entries for one fingerprint.
type Status struct {
	AudioKey          string
	AudioPresent      bool
	TranscriptKey     string
	TranscriptPresent bool
}

// New constructs a cache over backend.
func New(backend Backend, cfg Config, logger *slog.Logger) *Cache {
	if cfg.AudioPrefix == "" {
		cfg.AudioPrefix = "audio/"
	}
	if cfg.TranscriptPrefix == "" {
		cfg.TranscriptPrefix = "transcripts/"
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = time.Hour
	}
	return &Cache{
		backend: backend,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "objectcache"),
	}
}

// AudioKey returns the object name for fp's audio.
func (c *Cache) AudioKey(fp fingerprint.Fingerprint) string {
	return c.cfg.AudioPrefix + fp.String() + audioExtension
}

// TranscriptKey returns the object name for fp's transcript produced under
// variant (see recognition.Options.CacheVariant). An empty variant yields the
// bare per-content name.
func (c *Cache) TranscriptKey(fp fingerprint.Fingerprint, variant string) string {
	name := fp.String()
	if variant = strings.TrimSpace(variant); variant != "" {
		name += "." + variant
	}
	return c.cfg.TranscriptPrefix + name + transcriptExtension
}

// Exists reports whether audio for fp is already stored.
func (c *Cache) Exists(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	key := c.AudioKey(fp)
	ok, err := c.backend.Exists(ctx, key)
	if err != nil {
		return false, wrapStorage("exists", key, err)
	}
	return ok, nil
}

// Upload stores localPath as fp's audio unless it is already present.
// uploaded is true only when this call created the object.
func (c *Cache) Upload(ctx context.Context, fp fingerprint.Fingerprint, localPath string) (bool, error) {
	key := c.AudioKey(fp)
	present, err := c.backend.Exists(ctx, key)
	if err != nil {
		return false, wrapStorage("exists", key, err)
	}
	if present {
		c.logger.Debug("audio already stored; skipping upload", logging.String("audio_key", key))
		return false, nil
	}
	if err := c.backend.PutFile(ctx, key, localPath, audioContentType); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			logging.Decision(c.logger, "audio created concurrently by another run",
				"upload_conflict", "reuse", "another run stored identical content first",
				logging.String("audio_key", key),
			)
			return false, nil
		}
		return false, wrapStorage("upload", key, err)
	}
	return true, nil
}

// LocatorFor returns a time-limited fetchable URL for fp's audio.
func (c *Cache) LocatorFor(ctx context.Context, fp fingerprint.Fingerprint) (string, error) {
	key := c.AudioKey(fp)
	url, err := c.backend.SignURL(ctx, key, c.cfg.URLExpiry)
	if err != nil {
		return "", wrapStorage("sign url", key, err)
	}
	return url, nil
}

// Delete removes fp's audio. Missing objects are not an error.
func (c *Cache) Delete(ctx context.Context, fp fingerprint.Fingerprint) error {
	key := c.AudioKey(fp)
	if err := c.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return wrapStorage("delete", key, err)
	}
	return nil
}

// LoadTranscript returns the stored transcript payload for fp and variant, if any.
func (c *Cache) LoadTranscript(ctx context.Context, fp fingerprint.Fingerprint, variant string) ([]byte, bool, error) {
	key := c.TranscriptKey(fp, variant)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, wrapStorage("get transcript", key, err)
	}
	return data, true, nil
}

// StoreTranscript saves a transcript payload for fp and variant, replacing any
// older copy.
func (c *Cache) StoreTranscript(ctx context.Context, fp fingerprint.Fingerprint, variant string, data []byte) error {
	key := c.TranscriptKey(fp, variant)
	if err := c.backend.PutBytes(ctx, key, data, jsonContentType); err != nil {
		return wrapStorage("put transcript", key, err)
	}
	return nil
}

// DeleteTranscript removes fp's transcript for variant. Missing objects are
// not an error.
func (c *Cache) DeleteTranscript(ctx context.Context, fp fingerprint.Fingerprint, variant string) error {
	key := c.TranscriptKey(fp, variant)
	if err := c.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return wrapStorage("delete transcript", key, err)
	}
	return nil
}

// Status reports which entries exist for fp, checking the transcript stored
// under variant.
func (c *Cache) Status(ctx context.Context, fp fingerprint.Fingerprint, variant string) (Status, error) {
	status := Status{AudioKey: c.AudioKey(fp), TranscriptKey: c.TranscriptKey(fp, variant)}
	var err error
	if status.AudioPresent, err = c.backend.Exists(ctx, status.AudioKey); err != nil {
		return status, wrapStorage("exists", status.AudioKey, err)
	}
	if status.TranscriptPresent, err = c.backend.Exists(ctx, status.TranscriptKey); err != nil {
		return status, wrapStorage("exists", status.TranscriptKey, err)
	}
	return status, nil
}

func wrapStorage(operation, key string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return services.Wrap(services.ErrUpload, "objectcache", operation, fmt.Sprintf("object %s", strings.TrimSpace(key)), err)
}
