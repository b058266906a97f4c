package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clipstream/backend/internal/models"
)

type stubStatsSource struct {
	stats models.ChannelStats
	err   error
	calls int
}

func (s *stubStatsSource) ChannelStats(context.Context, string) (models.ChannelStats, error) {
	s.calls++
	if s.err != nil {
		return models.ChannelStats{}, s.err
	}
	return s.stats, nil
}

func TestCachingStatsStoreServesFromCache(t *testing.T) {
	base := &stubStatsSource{stats: models.ChannelStats{TotalVideos: 7}}
	cache := NewCachingStatsStore(base, time.Minute)

	ctx := context.Background()

	stats, err := cache.ChannelStats(ctx, "owner-1")
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats.TotalVideos != 7 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if base.calls != 1 {
		t.Fatalf("expected base called once got %d", base.calls)
	}

	if _, err := cache.ChannelStats(ctx, "owner-1"); err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected cached result got %d calls", base.calls)
	}

	// A different owner is its own cache entry.
	if _, err := cache.ChannelStats(ctx, "owner-2"); err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected a miss for a new owner got %d calls", base.calls)
	}
}

func TestCachingStatsStoreErrorsAreNotCached(t *testing.T) {
	base := &stubStatsSource{err: errors.New("database down")}
	cache := NewCachingStatsStore(base, time.Minute)

	if _, err := cache.ChannelStats(context.Background(), "owner-1"); err == nil {
		t.Fatal("expected error from base source")
	}

	base.err = nil
	base.stats = models.ChannelStats{TotalVideos: 1}
	stats, err := cache.ChannelStats(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("channel stats after recovery: %v", err)
	}
	if stats.TotalVideos != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCachingStatsStoreExpiry(t *testing.T) {
	base := &stubStatsSource{stats: models.ChannelStats{TotalVideos: 7}}
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	cache := NewCachingStatsStore(base, time.Minute).WithNowFunc(func() time.Time { return now })

	if _, err := cache.ChannelStats(context.Background(), "owner-1"); err != nil {
		t.Fatalf("channel stats: %v", err)
	}

	now = now.Add(2 * time.Minute)

	if _, err := cache.ChannelStats(context.Background(), "owner-1"); err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected cache miss after expiry got %d calls", base.calls)
	}
}

func TestCachingStatsStoreDefaultTTL(t *testing.T) {
	cache := NewCachingStatsStore(&stubStatsSource{}, 0)
	if cache.ttl <= 0 {
		t.Fatalf("expected ttl to default positive got %v", cache.ttl)
	}
}
