package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/config"
	"github.com/clipstream/backend/internal/handlers"
	"github.com/clipstream/backend/internal/mailer"
	"github.com/clipstream/backend/internal/middleware"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) (handlers.Dependencies, error) {
	media, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	users := repositories.NewPostgresUserRepository(pool)

	return handlers.Dependencies{
		Users:         users,
		Sessions:      auth.NewManager(cfg.AccessTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, users),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Tweets:        repositories.NewPostgresTweetRepository(pool),
		Playlists:     repositories.NewPostgresPlaylistRepository(pool),
		Stats:         repositories.NewCachingStatsStore(repositories.NewPostgresStatsRepository(pool), 30*time.Second),
		ResetTokens:   repositories.NewPostgresResetTokenRepository(pool),
		Storage:       media,
		Mail:          mailer.NewSMTPMailer(cfg.SMTP),
		AuthLimiter:   middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		DB:            pool,

		PublicBaseURL: cfg.PublicBaseURL,
		ResetTokenTTL: cfg.ResetTokenTTL,
	}, nil
}
