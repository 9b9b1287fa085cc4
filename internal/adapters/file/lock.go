package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
)

// Locker implements ports.CaseLocker with O_EXCL lock files. It is
// single-host only; multi-host deployments use the redis locker instead.
type Locker struct {
	BasePath string
	// Poll is the retry interval while the lock is held elsewhere.
	Poll time.Duration
}

// NewLocker creates a Locker writing lock files under basePath.
func NewLocker(basePath string) *Locker {
	if basePath == "" {
		basePath = filepath.Join(".nestor", "locks")
	}
	return &Locker{BasePath: basePath, Poll: 100 * time.Millisecond}
}

func (l *Locker) lockPath(key string) string {
	return filepath.Join(l.BasePath, url.PathEscape(key)+".lock")
}

// Lock acquires the lock for key, polling until it succeeds or ctx is
// canceled. A lock file older than ttl is considered abandoned by a crashed
// run and is broken.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if err := os.MkdirAll(l.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure lock directory: %w", err)
	}
	path := l.lockPath(key)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			_ = f.Close()
			return func(ctx context.Context) error {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to release lock: %w", err)
				}
				return nil
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		if info, statErr := os.Stat(path); statErr == nil && ttl > 0 && time.Since(info.ModTime()) > ttl {
			_ = os.Remove(path)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", domain.ErrCaseLocked, key)
		case <-time.After(l.Poll):
		}
	}
}
