package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/coastalkit/nestor/pkg/domain"
	"github.com/coastalkit/nestor/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// Locker implements ports.CaseLocker with Redis SET NX PX. The lock value
// is a per-acquisition UUID so that release only deletes a lock this holder
// actually owns.
type Locker struct {
	client *backend.Client
	prefix string
	// Poll is the retry interval while the lock is held elsewhere.
	Poll time.Duration
}

// NewLocker creates a Redis locker.
func NewLocker(client *backend.Client, prefix string) *Locker {
	if prefix == "" {
		prefix = "nestor:"
	}
	return &Locker{client: client, prefix: prefix, Poll: 100 * time.Millisecond}
}

// Lock acquires the distributed lock for key, polling until it succeeds or
// ctx is canceled. The TTL bounds how long a crashed holder can block other
// runs.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	val := uuid.NewString()

	ticker := time.NewTicker(l.Poll)
	defer ticker.Stop()

	for {
		success, err := l.client.SetNX(ctx, lockKey, val, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if success {
			return func(ctx context.Context) error {
				// Compare-and-delete so an expired lock reacquired by
				// another run is never released from here.
				script := `
					if redis.call("get", KEYS[1]) == ARGV[1] then
						return redis.call("del", KEYS[1])
					else
						return 0
					end
				`
				return l.client.Eval(ctx, script, []string{lockKey}, val).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", domain.ErrCaseLocked, key)
		case <-ticker.C:
		}
	}
}
