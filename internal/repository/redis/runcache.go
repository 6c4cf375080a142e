package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"finwiz/internal/adapters/redis"
	"finwiz/pkg/errors"
)

// CachedRun is the subset of a finished run worth replaying on a repeated
// kickoff within the same day.
type CachedRun struct {
	RunID    string            `json:"run_id"`
	Crew     string            `json:"crew"`
	Asset    string            `json:"asset"`
	Outputs  map[string]string `json:"outputs"`
	Final    string            `json:"final"`
	CachedAt time.Time         `json:"cached_at"`
}

// RunCache short-circuits repeated crew kickoffs for the same asset and day.
type RunCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunCache creates the crew run cache.
func NewRunCache(client *redis.Client, ttl time.Duration) *RunCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RunCache{client: client, ttl: ttl}
}

// key is crew + asset + calendar day, so a new day always recomputes.
func (c *RunCache) key(crewName, asset string, day time.Time) string {
	return "runs:" + crewName + ":" + asset + ":" + day.UTC().Format("2006-01-02")
}

// Get returns the cached run for today, or (nil, nil) on a miss.
func (c *RunCache) Get(ctx context.Context, crewName, asset string) (*CachedRun, error) {
	var cached CachedRun
	err := c.client.Get(ctx, c.key(crewName, asset, time.Now()), &cached)
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cached run")
	}
	return &cached, nil
}

// Put stores a finished run under today's key.
func (c *RunCache) Put(ctx context.Context, cached *CachedRun) error {
	if cached == nil || cached.Crew == "" {
		return errors.Wrap(errors.ErrInvalidInput, "cached run must name its crew")
	}
	if cached.CachedAt.IsZero() {
		cached.CachedAt = time.Now().UTC()
	}

	key := c.key(cached.Crew, cached.Asset, time.Now())
	return errors.Wrap(c.client.Set(ctx, key, cached, c.ttl), "store cached run")
}

// Invalidate removes today's cached run for a crew and asset.
func (c *RunCache) Invalidate(ctx context.Context, crewName, asset string) error {
	return c.client.Delete(ctx, c.key(crewName, asset, time.Now()))
}
