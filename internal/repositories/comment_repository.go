package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresCommentRepository provides PostgreSQL-backed persistence for
// video comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by
// PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create persists a new comment. A missing video surfaces as ErrNotFound
// via the foreign key.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// FindByID fetches a single comment.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, video_id, owner_id, content, created_at, updated_at
        FROM comments
        WHERE id = $1
    `, id)

	var comment models.Comment
	err = row.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}

	return comment, nil
}

// ListForVideo returns one newest-first page of a video's comments with
// owner summaries and like counts, plus the total count.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string, page, limit int) (models.CommentPage, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	rows, err := conn.Query(ctx, `
        SELECT c.id, c.video_id, c.owner_id, c.content, c.created_at, c.updated_at,
               u.id, u.username, u.full_name, u.avatar_url,
               (SELECT COUNT(*) FROM likes l WHERE l.comment_id = c.id) AS like_count,
               COUNT(*) OVER () AS total
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC
        LIMIT $2 OFFSET $3
    `, videoID, limit, (page-1)*limit)
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	result := models.CommentPage{Page: page, Limit: limit}
	for rows.Next() {
		var item models.CommentWithOwner
		if err := rows.Scan(
			&item.Comment.ID, &item.VideoID, &item.Comment.OwnerID, &item.Content,
			&item.CreatedAt, &item.UpdatedAt,
			&item.Owner.ID, &item.Owner.Username, &item.Owner.FullName, &item.Owner.AvatarURL,
			&item.LikeCount, &result.Total,
		); err != nil {
			return models.CommentPage{}, fmt.Errorf("scan comment: %w", err)
		}
		result.Comments = append(result.Comments, item)
	}
	if err := rows.Err(); err != nil {
		return models.CommentPage{}, fmt.Errorf("iterate comments: %w", err)
	}

	return result, nil
}

// UpdateContent replaces the comment body.
func (r *PostgresCommentRepository) UpdateContent(ctx context.Context, id, content string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE comments
        SET content = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING id, video_id, owner_id, content, created_at, updated_at
    `, id, content)

	var comment models.Comment
	err = row.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Comment{}, ErrNotFound
		}
		if mapped := mapPgError(err); mapped != err {
			return models.Comment{}, mapped
		}
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}

	return comment, nil
}

// Delete removes a comment.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
