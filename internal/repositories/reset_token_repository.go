package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/clipstream/backend/internal/db"
)

// ResetToken is a persisted single-use password-reset token. Only the hash
// of the opaque token is stored.
type ResetToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
}

// PostgresResetTokenRepository persists password-reset tokens.
type PostgresResetTokenRepository struct {
	pool db.Pool
}

// NewPostgresResetTokenRepository constructs a reset-token repository backed
// by PostgreSQL.
func NewPostgresResetTokenRepository(pool db.Pool) *PostgresResetTokenRepository {
	return &PostgresResetTokenRepository{pool: pool}
}

// Save stores a reset token, replacing any outstanding token for the same
// user so only the most recently requested link works.
func (r *PostgresResetTokenRepository) Save(ctx context.Context, token ResetToken) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM password_reset_tokens WHERE user_id = $1
    `, token.UserID); err != nil {
		return fmt.Errorf("clear outstanding reset tokens: %w", err)
	}

	if _, err := conn.Exec(ctx, `
        INSERT INTO password_reset_tokens (token_hash, user_id, expires_at)
        VALUES ($1, $2, $3)
    `, token.TokenHash, token.UserID, token.ExpiresAt.UTC()); err != nil {
		if mapped := mapPgError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("insert reset token: %w", err)
	}

	return nil
}

// Find loads a token by hash. Expired tokens are reported as not found.
func (r *PostgresResetTokenRepository) Find(ctx context.Context, tokenHash string) (ResetToken, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return ResetToken{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT token_hash, user_id, expires_at
        FROM password_reset_tokens
        WHERE token_hash = $1 AND expires_at > NOW()
    `, tokenHash)

	var token ResetToken
	if err := row.Scan(&token.TokenHash, &token.UserID, &token.ExpiresAt); err != nil {
		if err == pgx.ErrNoRows {
			return ResetToken{}, ErrNotFound
		}
		return ResetToken{}, fmt.Errorf("select reset token: %w", err)
	}

	return token, nil
}

// Delete consumes a token. Resets are single-use.
func (r *PostgresResetTokenRepository) Delete(ctx context.Context, tokenHash string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM password_reset_tokens WHERE token_hash = $1
    `, tokenHash)
	if err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired sweeps out stale tokens. Stands in for the document
// database's TTL index; called periodically from the serve loop.
func (r *PostgresResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM password_reset_tokens WHERE expires_at <= NOW()
    `)
	if err != nil {
		return 0, fmt.Errorf("sweep reset tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}
