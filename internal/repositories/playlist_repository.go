package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for
// playlists and their video memberships.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by
// PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create persists a new playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert playlist: %w", err)
	}

	return nil
}

// FindByID fetches a playlist and its ordered videos.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.PlaylistWithVideos, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.PlaylistWithVideos{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description,
               (SELECT COUNT(*) FROM playlist_videos pv WHERE pv.playlist_id = p.id),
               p.created_at, p.updated_at
        FROM playlists p
        WHERE p.id = $1
    `, id)

	var result models.PlaylistWithVideos
	err = row.Scan(
		&result.ID, &result.OwnerID, &result.Name, &result.Description,
		&result.VideoCount, &result.CreatedAt, &result.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.PlaylistWithVideos{}, ErrNotFound
		}
		return models.PlaylistWithVideos{}, fmt.Errorf("select playlist: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
               v.duration, v.views, v.published, v.created_at, v.updated_at
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position
    `, id)
	if err != nil {
		return models.PlaylistWithVideos{}, fmt.Errorf("query playlist videos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var video models.Video
		if err := rows.Scan(
			&video.ID, &video.OwnerID, &video.VideoURL, &video.ThumbnailURL, &video.Title,
			&video.Description, &video.Duration, &video.Views, &video.Published,
			&video.CreatedAt, &video.UpdatedAt,
		); err != nil {
			return models.PlaylistWithVideos{}, fmt.Errorf("scan playlist video: %w", err)
		}
		result.Videos = append(result.Videos, video)
	}
	if err := rows.Err(); err != nil {
		return models.PlaylistWithVideos{}, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return result, nil
}

// ListForOwner returns the user's playlists with video counts.
func (r *PostgresPlaylistRepository) ListForOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description,
               (SELECT COUNT(*) FROM playlist_videos pv WHERE pv.playlist_id = p.id),
               p.created_at, p.updated_at
        FROM playlists p
        WHERE p.owner_id = $1
        ORDER BY p.created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(
			&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
			&playlist.VideoCount, &playlist.CreatedAt, &playlist.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	return playlists, nil
}

// Update merges the supplied fields into the playlist.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id string, patch models.PlaylistPatch) (models.Playlist, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE playlists
        SET name = COALESCE($2, name),
            description = COALESCE($3, description),
            updated_at = NOW()
        WHERE id = $1
        RETURNING id, owner_id, name, description,
                  (SELECT COUNT(*) FROM playlist_videos pv WHERE pv.playlist_id = playlists.id),
                  created_at, updated_at
    `, id, patch.Name, patch.Description)

	var playlist models.Playlist
	err = row.Scan(
		&playlist.ID, &playlist.OwnerID, &playlist.Name, &playlist.Description,
		&playlist.VideoCount, &playlist.CreatedAt, &playlist.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}

	return playlist, nil
}

// Delete removes a playlist; memberships cascade.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddVideo appends a video to the playlist. Adding a video that is already
// present returns ErrConflict; the composite primary key enforces this.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position)
        VALUES ($1, $2, (
            SELECT COALESCE(MAX(position), 0) + 1 FROM playlist_videos WHERE playlist_id = $1
        ))
    `, playlistID, videoID)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert playlist video: %w", err)
	}

	return nil
}

// RemoveVideo drops a video from the playlist. Removing an absent video
// returns ErrNotFound.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM playlist_videos
        WHERE playlist_id = $1 AND video_id = $2
    `, playlistID, videoID)
	if err != nil {
		return fmt.Errorf("delete playlist video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
