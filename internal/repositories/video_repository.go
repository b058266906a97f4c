package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// VideoListOptions captures the query string of a video listing request.
type VideoListOptions struct {
	Query    string
	SortBy   string
	SortType string
	Page     int
	Limit    int
	// OwnerID restricts the listing to one channel when set.
	OwnerID string
	// IncludeUnpublished lifts the published-only filter (dashboard view).
	IncludeUnpublished bool
}

// videoSortColumns whitelists sortable fields; anything else falls back to
// creation time.
var videoSortColumns = map[string]string{
	"createdAt": "v.created_at",
	"title":     "v.title",
	"duration":  "v.duration",
	"views":     "v.views",
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video metadata record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, video_url, thumbnail_url, title, description, duration, views, published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.VideoURL, video.ThumbnailURL, video.Title,
		video.Description, video.Duration, video.Views, video.Published,
		video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// List returns one page of videos plus the total match count, computed in
// the same query via a window function.
func (r *PostgresVideoRepository) List(ctx context.Context, opts VideoListOptions) (models.VideoPage, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 100 {
		opts.Limit = 10
	}

	var clauses []string
	var args []any

	if !opts.IncludeUnpublished {
		clauses = append(clauses, "v.published")
	}
	if opts.OwnerID != "" {
		args = append(args, opts.OwnerID)
		clauses = append(clauses, fmt.Sprintf("v.owner_id = $%d", len(args)))
	}
	if opts.Query != "" {
		args = append(args, "%"+opts.Query+"%")
		clauses = append(clauses, fmt.Sprintf("(v.title ILIKE $%d OR v.description ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	sortColumn, ok := videoSortColumns[opts.SortBy]
	if !ok {
		sortColumn = "v.created_at"
	}
	direction := "DESC"
	if strings.EqualFold(opts.SortType, "asc") {
		direction = "ASC"
	}

	args = append(args, opts.Limit)
	limitArg := len(args)
	args = append(args, (opts.Page-1)*opts.Limit)
	offsetArg := len(args)

	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
               v.duration, v.views, v.published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url,
               COUNT(*) OVER () AS total
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        %s
        ORDER BY %s %s
        LIMIT $%d OFFSET $%d
    `, where, sortColumn, direction, limitArg, offsetArg), args...)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	page := models.VideoPage{Page: opts.Page, Limit: opts.Limit}
	for rows.Next() {
		var item models.VideoWithOwner
		if err := rows.Scan(
			&item.Video.ID, &item.OwnerID, &item.VideoURL, &item.ThumbnailURL, &item.Title,
			&item.Description, &item.Duration, &item.Views, &item.Published,
			&item.CreatedAt, &item.UpdatedAt,
			&item.Owner.ID, &item.Owner.Username, &item.Owner.FullName, &item.Owner.AvatarURL,
			&page.Total,
		); err != nil {
			return models.VideoPage{}, fmt.Errorf("scan video: %w", err)
		}
		page.Videos = append(page.Videos, item)
	}
	if err := rows.Err(); err != nil {
		return models.VideoPage{}, fmt.Errorf("iterate videos: %w", err)
	}

	// An empty page past the end still needs the real total.
	if len(page.Videos) == 0 {
		row := conn.QueryRow(ctx, fmt.Sprintf(`
            SELECT COUNT(*) FROM videos v %s
        `, where), args[:len(args)-2]...)
		if err := row.Scan(&page.Total); err != nil {
			return models.VideoPage{}, fmt.Errorf("count videos: %w", err)
		}
	}

	return page, nil
}

// FindByID fetches a video with its owner summary.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.VideoWithOwner, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoWithOwner{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
               v.duration, v.views, v.published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.id = $1
    `, id)

	var item models.VideoWithOwner
	err = row.Scan(
		&item.Video.ID, &item.OwnerID, &item.VideoURL, &item.ThumbnailURL, &item.Title,
		&item.Description, &item.Duration, &item.Views, &item.Published,
		&item.CreatedAt, &item.UpdatedAt,
		&item.Owner.ID, &item.Owner.Username, &item.Owner.FullName, &item.Owner.AvatarURL,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.VideoWithOwner{}, ErrNotFound
		}
		return models.VideoWithOwner{}, fmt.Errorf("select video: %w", err)
	}

	return item, nil
}

// Update applies the patch and returns the updated video together with the
// previous thumbnail location so the caller can delete a replaced asset.
func (r *PostgresVideoRepository) Update(ctx context.Context, id string, patch models.VideoPatch) (models.Video, string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos v
        SET title = COALESCE($2, v.title),
            description = COALESCE($3, v.description),
            thumbnail_url = COALESCE($4, v.thumbnail_url),
            updated_at = NOW()
        FROM videos prev
        WHERE v.id = $1 AND prev.id = v.id
        RETURNING v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
                  v.duration, v.views, v.published, v.created_at, v.updated_at,
                  prev.thumbnail_url
    `, id, patch.Title, patch.Description, patch.ThumbnailURL)

	var video models.Video
	var previousThumbnail string
	err = row.Scan(
		&video.ID, &video.OwnerID, &video.VideoURL, &video.ThumbnailURL, &video.Title,
		&video.Description, &video.Duration, &video.Views, &video.Published,
		&video.CreatedAt, &video.UpdatedAt, &previousThumbnail,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Video{}, "", ErrNotFound
		}
		return models.Video{}, "", fmt.Errorf("update video: %w", err)
	}

	return video, previousThumbnail, nil
}

// TogglePublish flips the published flag and returns the new state.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos SET published = NOT published, updated_at = NOW()
        WHERE id = $1
        RETURNING published
    `, id)

	var published bool
	if err := row.Scan(&published); err != nil {
		if err == pgx.ErrNoRows {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("toggle publish: %w", err)
	}
	return published, nil
}

// Delete removes the metadata row. Comments, likes, playlist references and
// watch-history rows cascade at the storage layer.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// collectVideosWithOwner scans rows shaped as video columns followed by the
// owner summary columns.
func collectVideosWithOwner(rows pgx.Rows) ([]models.VideoWithOwner, error) {
	var items []models.VideoWithOwner
	for rows.Next() {
		var item models.VideoWithOwner
		if err := rows.Scan(
			&item.Video.ID, &item.OwnerID, &item.VideoURL, &item.ThumbnailURL, &item.Title,
			&item.Description, &item.Duration, &item.Views, &item.Published,
			&item.CreatedAt, &item.UpdatedAt,
			&item.Owner.ID, &item.Owner.Username, &item.Owner.FullName, &item.Owner.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return items, nil
}
