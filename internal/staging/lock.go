package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockRetry is how often a blocked AcquireLock retries.
const DefaultLockRetry = 500 * time.Millisecond

// Lock is an exclusive advisory lock held for one content key.
type Lock struct {
	lock *flock.Flock
}

// AcquireLock blocks until the lock for key is held or ctx is done. Different
// keys never contend.
func AcquireLock(ctx context.Context, lockDir, key string, retry time.Duration) (*Lock, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) {
		return nil, fmt.Errorf("invalid lock key %q", key)
	}
	if retry <= 0 {
		retry = DefaultLockRetry
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(filepath.Join(lockDir, key+".lock"))
	ok, err := fl.TryLockContext(ctx, retry)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire lock %s: not acquired", fl.Path())
	}
	return &Lock{lock: fl}, nil
}

// TryAcquireLock takes the lock for key without waiting. It reports false
// when another process holds it.
func TryAcquireLock(lockDir, key string) (*Lock, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) {
		return nil, false, fmt.Errorf("invalid lock key %q", key)
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, false, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(filepath.Join(lockDir, key+".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{lock: fl}, true, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.lock.Path()
}

// Release unlocks. The lock file itself is left in place.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.lock.Unlock()
}
