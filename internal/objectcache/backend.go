package objectcache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyExists reports a no-overwrite put that lost a race.
	ErrAlreadyExists = errors.New("object already exists")
	// ErrNotFound reports a missing object.
	ErrNotFound = errors.New("object not found")
)

// Backend is the object storage surface the cache needs.
type Backend interface {
	Exists(ctx context.Context, key string) (bool, error)
	// PutFile uploads path without overwriting; a conflicting object yields
	// ErrAlreadyExists.
	PutFile(ctx context.Context, key, path, contentType string) error
	PutBytes(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	SignURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}
