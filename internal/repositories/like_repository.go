package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// likeTargetColumns maps a like target kind to its column name.
var likeTargetColumns = map[models.LikeTarget]string{
	models.LikeTargetVideo:   "video_id",
	models.LikeTargetComment: "comment_id",
	models.LikeTargetTweet:   "tweet_id",
}

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle flips the (user, target) like relation and returns the resulting
// membership. The partial unique indexes arbitrate concurrent toggles the
// same way the subscription toggle does.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, userID string, target models.LikeTarget, targetID string) (bool, error) {
	column, ok := likeTargetColumns[target]
	if !ok {
		return false, fmt.Errorf("unknown like target %q", target)
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, fmt.Sprintf(`
        INSERT INTO likes (id, liked_by, %s)
        VALUES ($1, $2, $3)
        ON CONFLICT (liked_by, %s) WHERE %s IS NOT NULL DO NOTHING
    `, column, column, column), uuid.NewString(), userID, targetID)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return false, mapped
		}
		return false, fmt.Errorf("insert like: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return true, nil
	}

	if _, err := conn.Exec(ctx, fmt.Sprintf(`
        DELETE FROM likes WHERE liked_by = $1 AND %s = $2
    `, column), userID, targetID); err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}

	return false, nil
}

// LikedVideos returns the videos liked by the user, most recently liked
// first, with owner summaries.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string) ([]models.VideoWithOwner, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
               v.duration, v.views, v.published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE l.liked_by = $1 AND l.video_id IS NOT NULL
        ORDER BY l.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	return collectVideosWithOwner(rows)
}
