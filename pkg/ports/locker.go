package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a held case lock.
type UnlockFunc func(ctx context.Context) error

// CaseLocker enforces single-writer access to a case directory. Two
// orchestrator instances must never run the same fulldomain/subdomain pair
// concurrently, since Run and Update mutate the same filesystem state.
type CaseLocker interface {
	// Lock attempts to acquire the lock for the given key (the case
	// directory path). It blocks until the lock is acquired or the context
	// is canceled. Returns an UnlockFunc that MUST be called to release.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
