package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

const userColumns = `
        id, username, email, password_hash, full_name, avatar_url, cover_url,
        refresh_token_hash, COALESCE(refresh_expires_at, 'epoch'::timestamptz),
        created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record. A username or email collision surfaces
// as ErrConflict.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, full_name, avatar_url, cover_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.Password, user.FullName, user.AvatarURL, user.CoverURL, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

// FindByUsername fetches a user by their username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, `WHERE username = $1`, username)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, arg any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	return scanUser(row)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Password, &user.FullName,
		&user.AvatarURL, &user.CoverURL, &user.RefreshTokenHash, &user.RefreshExpiresAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.exec(ctx, `
        UPDATE users
        SET password_hash = $2, updated_at = NOW()
        WHERE id = $1
    `, userID, passwordHash)
}

// UpdateDetails applies the provided partial update to the user's account
// fields, touching only the fields present on the patch.
func (r *PostgresUserRepository) UpdateDetails(ctx context.Context, userID string, patch models.AccountPatch) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE users
        SET full_name = COALESCE($2, full_name),
            email = COALESCE($3, email),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns,
		userID, patch.FullName, patch.Email)

	user, err := scanUser(row)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return models.User{}, mapped
		}
		return models.User{}, err
	}
	return user, nil
}

// UpdateAvatarURL replaces the avatar location and returns the previous one
// so the caller can delete the superseded asset.
func (r *PostgresUserRepository) UpdateAvatarURL(ctx context.Context, userID, avatarURL string) (string, error) {
	return r.swapURL(ctx, `avatar_url`, userID, avatarURL)
}

// UpdateCoverURL replaces the cover photo location and returns the previous
// one.
func (r *PostgresUserRepository) UpdateCoverURL(ctx context.Context, userID, coverURL string) (string, error) {
	return r.swapURL(ctx, `cover_url`, userID, coverURL)
}

func (r *PostgresUserRepository) swapURL(ctx context.Context, column, userID, url string) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// The self-join reads the pre-update value in the same statement.
	row := conn.QueryRow(ctx, `
        UPDATE users u
        SET `+column+` = $2, updated_at = NOW()
        FROM users prev
        WHERE u.id = $1 AND prev.id = u.id
        RETURNING prev.`+column,
		userID, url)

	var previous string
	if err := row.Scan(&previous); err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("update user %s: %w", column, err)
	}
	return previous, nil
}

// SaveRefreshToken persists the refresh token hash on the user record,
// superseding any previously issued token. Implements auth.RefreshStore.
func (r *PostgresUserRepository) SaveRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	return r.exec(ctx, `
        UPDATE users
        SET refresh_token_hash = $2, refresh_expires_at = $3
        WHERE id = $1
    `, userID, tokenHash, expiresAt.UTC())
}

// FindByRefreshTokenHash resolves the user holding the given refresh token
// hash.
func (r *PostgresUserRepository) FindByRefreshTokenHash(ctx context.Context, tokenHash string) (models.User, error) {
	if tokenHash == "" {
		return models.User{}, auth.ErrSessionNotFound
	}

	user, err := r.findOne(ctx, `WHERE refresh_token_hash = $1`, tokenHash)
	if err == ErrNotFound {
		return models.User{}, auth.ErrSessionNotFound
	}
	return user, err
}

// ClearRefreshToken drops the persisted refresh token, ending the session.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	return r.exec(ctx, `
        UPDATE users
        SET refresh_token_hash = '', refresh_expires_at = NULL
        WHERE id = $1
    `, userID)
}

func (r *PostgresUserRepository) exec(ctx context.Context, sql string, args ...any) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, sql, args...)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ChannelProfile aggregates the channel page numbers for a username. The
// viewer id determines the isSubscribed flag and may be empty.
func (r *PostgresUserRepository) ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.username, u.email, u.full_name, u.avatar_url, u.cover_url, u.created_at,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
               EXISTS (
                   SELECT 1 FROM subscriptions s
                   WHERE s.channel_id = u.id AND s.subscriber_id = $2
               ) AS is_subscribed
        FROM users u
        WHERE u.username = $1
    `, username, nullableID(viewerID))

	var profile models.ChannelProfile
	err = row.Scan(
		&profile.ID, &profile.Username, &profile.Email, &profile.FullName,
		&profile.AvatarURL, &profile.CoverURL, &profile.CreatedAt,
		&profile.SubscriberCount, &profile.SubscribedToCount, &profile.IsSubscribed,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// nullableID maps an empty id to NULL so uuid-typed comparisons do not fail
// on the empty string.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// WatchHistory resolves the user's watch history into full video documents
// with owner summaries, in the order the videos were first watched.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string) ([]models.VideoWithOwner, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
               v.duration, v.views, v.published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar_url
        FROM watch_history wh
        JOIN videos v ON v.id = wh.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE wh.user_id = $1
        ORDER BY wh.position ASC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	return collectVideosWithOwner(rows)
}

// RecordView appends the video to the user's watch history and bumps the
// view counter. The primary key on (user_id, video_id) makes the append
// idempotent: repeat views by the same user insert nothing and therefore
// increment nothing.
func (r *PostgresUserRepository) RecordView(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, position)
        VALUES ($1, $2, (
            SELECT COALESCE(MAX(position), 0) + 1 FROM watch_history WHERE user_id = $1
        ))
        ON CONFLICT (user_id, video_id) DO NOTHING
    `, userID, videoID)
	if err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("append watch history: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Already watched; view count stays put.
		return nil
	}

	if _, err := conn.Exec(ctx, `
        UPDATE videos SET views = views + 1 WHERE id = $1
    `, videoID); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}

	return nil
}
