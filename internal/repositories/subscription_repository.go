package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for
// channel subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository
// backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle subscribes the subscriber to the channel when no relation exists
// and unsubscribes otherwise, returning the resulting membership. The unique
// index on (subscriber_id, channel_id) arbitrates concurrent toggles: the
// insert either lands or is a no-op, and the no-op branch deletes the row
// the concurrent insert left behind.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (subscriber_id, channel_id) DO NOTHING
    `, uuid.NewString(), subscriberID, channelID)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return false, mapped
		}
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if _, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID); err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}

	return false, nil
}

// Subscribers returns the identities subscribed to the channel, newest
// first.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channelID string) ([]models.OwnerSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar_url
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC
    `, channelID)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []models.OwnerSummary
	for rows.Next() {
		var sub models.OwnerSummary
		if err := rows.Scan(&sub.ID, &sub.Username, &sub.FullName, &sub.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		subscribers = append(subscribers, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}

	return subscribers, nil
}

// SubscribedChannels returns the channels the user follows, each with its
// own subscriber count.
func (r *PostgresSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriberID string) ([]models.Channel, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.full_name, u.avatar_url,
               (SELECT COUNT(*) FROM subscriptions inner_s WHERE inner_s.channel_id = u.id) AS subscriber_count
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC
    `, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query subscribed channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(&ch.ID, &ch.Username, &ch.FullName, &ch.AvatarURL, &ch.SubscriberCount); err != nil {
			return nil, fmt.Errorf("scan subscribed channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribed channels: %w", err)
	}

	return channels, nil
}
