package repositories

import (
	"context"
	"fmt"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresStatsRepository aggregates dashboard numbers for channel owners.
type PostgresStatsRepository struct {
	pool db.Pool
}

// NewPostgresStatsRepository constructs a stats repository backed by
// PostgreSQL.
func NewPostgresStatsRepository(pool db.Pool) *PostgresStatsRepository {
	return &PostgresStatsRepository{pool: pool}
}

// ChannelStats returns the owner's video, view, subscriber and like totals.
func (r *PostgresStatsRepository) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM videos v WHERE v.owner_id = $1),
            (SELECT COALESCE(SUM(v.views), 0) FROM videos v WHERE v.owner_id = $1),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = $1),
            (SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.video_id WHERE v.owner_id = $1)
    `, ownerID)

	var stats models.ChannelStats
	if err := row.Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalSubscribers, &stats.TotalLikes); err != nil {
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}

	return stats, nil
}
