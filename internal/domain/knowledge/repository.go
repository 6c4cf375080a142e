package knowledge

import (
	"context"
	"time"
)

// Repository is the storage contract for knowledge entries.
//
// Implementations must be safe for concurrent use: Put is append-only with an
// atomic id assignment, and Query must never block on concurrent writers.
type Repository interface {
	// Put stores a new entry and returns its assigned id.
	Put(ctx context.Context, entry *Entry) (int64, error)

	// Query returns active entries matching the filter, ranked by relevance
	// then recency. An empty result is not an error.
	Query(ctx context.Context, filter Filter) ([]*Entry, error)

	// Prune soft-deletes non-evergreen entries older than their category's
	// retention window at the given time. Returns the number pruned.
	// Idempotent: a second sweep with no intervening Put prunes nothing.
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// RetentionPolicy maps a category to its retention window.
type RetentionPolicy func(Category) time.Duration
