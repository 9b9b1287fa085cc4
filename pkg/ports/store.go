package ports

import (
	"context"

	"github.com/coastalkit/nestor/pkg/domain"
)

// PhaseStore persists per-case phase progression records. The store is the
// explicit state machine behind the filesystem idempotency checks: a record
// says how far a pair got, the file checks verify it is still true.
//
// Keys identify a fulldomain/subdomain pair (the facade derives them from
// the subdomain path).
type PhaseStore interface {
	// Save persists the record under key.
	Save(ctx context.Context, key string, state *domain.PhaseState) error
	// Load retrieves the record, or domain.ErrPhaseStateNotFound.
	Load(ctx context.Context, key string) (*domain.PhaseState, error)
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all known keys.
	List(ctx context.Context) ([]string, error)
}
