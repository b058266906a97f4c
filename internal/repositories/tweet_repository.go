package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by
// PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

// Create persists a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert tweet: %w", err)
	}

	return nil
}

// FindByID fetches a single tweet.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, content, created_at, updated_at
        FROM tweets
        WHERE id = $1
    `, id)

	var tweet models.Tweet
	err = row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content, &tweet.CreatedAt, &tweet.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Tweet{}, ErrNotFound
		}
		return models.Tweet{}, fmt.Errorf("select tweet: %w", err)
	}

	return tweet, nil
}

// ListForOwner returns the user's tweets, newest first, with owner summary
// and like counts joined in.
func (r *PostgresTweetRepository) ListForOwner(ctx context.Context, ownerID string) ([]models.TweetWithOwner, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT t.id, t.owner_id, t.content, t.created_at, t.updated_at,
               u.id, u.username, u.full_name, u.avatar_url,
               (SELECT COUNT(*) FROM likes l WHERE l.tweet_id = t.id) AS like_count
        FROM tweets t
        JOIN users u ON u.id = t.owner_id
        WHERE t.owner_id = $1
        ORDER BY t.created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	var tweets []models.TweetWithOwner
	for rows.Next() {
		var item models.TweetWithOwner
		if err := rows.Scan(
			&item.Tweet.ID, &item.Tweet.OwnerID, &item.Content, &item.CreatedAt, &item.UpdatedAt,
			&item.Owner.ID, &item.Owner.Username, &item.Owner.FullName, &item.Owner.AvatarURL,
			&item.LikeCount,
		); err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		tweets = append(tweets, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}

	return tweets, nil
}

// UpdateContent replaces the tweet body.
func (r *PostgresTweetRepository) UpdateContent(ctx context.Context, id, content string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE tweets
        SET content = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING id, owner_id, content, created_at, updated_at
    `, id, content)

	var tweet models.Tweet
	err = row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content, &tweet.CreatedAt, &tweet.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Tweet{}, ErrNotFound
		}
		if mapped := mapPgError(err); mapped != err {
			return models.Tweet{}, mapped
		}
		return models.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}

	return tweet, nil
}

// Delete removes a tweet.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM tweets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
