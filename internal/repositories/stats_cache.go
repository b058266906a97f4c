package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/clipstream/backend/internal/models"
)

type statsEntry struct {
	stats   models.ChannelStats
	expires time.Time
}

// statsSource is the lookup the cache delegates to on a miss.
type statsSource interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// CachingStatsStore wraps a stats source with a TTL-based in-memory cache.
// Dashboard aggregates tolerate slight staleness, so repeated loads of the
// same channel skip the four aggregate queries.
type CachingStatsStore struct {
	base statsSource
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]statsEntry
}

// NewCachingStatsStore returns a stats store that caches lookups for the
// provided TTL.
func NewCachingStatsStore(base statsSource, ttl time.Duration) *CachingStatsStore {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingStatsStore{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]statsEntry),
	}
}

// WithNowFunc allows tests to override the time source.
func (c *CachingStatsStore) WithNowFunc(now func() time.Time) *CachingStatsStore {
	c.now = now
	return c
}

// ChannelStats returns cached aggregates when fresh, otherwise it delegates
// to the underlying source and stores the result.
func (c *CachingStatsStore) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[ownerID]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.stats, nil
	}

	stats, err := c.base.ChannelStats(ctx, ownerID)
	if err != nil {
		return models.ChannelStats{}, err
	}

	c.mu.Lock()
	c.items[ownerID] = statsEntry{stats: stats, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return stats, nil
}
