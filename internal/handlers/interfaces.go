package handlers

import (
	"context"
	"io"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user
// handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	UpdateDetails(ctx context.Context, userID string, patch models.AccountPatch) (models.User, error)
	UpdateAvatarURL(ctx context.Context, userID, avatarURL string) (string, error)
	UpdateCoverURL(ctx context.Context, userID, coverURL string) (string, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.VideoWithOwner, error)
	RecordView(ctx context.Context, userID, videoID string) error
}

// SessionManager issues, refreshes, revokes and verifies authentication
// tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, userID string)
	Verify(accessToken string) (auth.Principal, error)
}

// VideoStore captures persistence for video metadata.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	List(ctx context.Context, opts repositories.VideoListOptions) (models.VideoPage, error)
	FindByID(ctx context.Context, id string) (models.VideoWithOwner, error)
	Update(ctx context.Context, id string, patch models.VideoPatch) (models.Video, string, error)
	TogglePublish(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// SubscriptionStore captures the subscription toggle and listing queries.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.OwnerSummary, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.Channel, error)
}

// LikeStore captures the like toggle and liked-video listing.
type LikeStore interface {
	Toggle(ctx context.Context, userID string, target models.LikeTarget, targetID string) (bool, error)
	LikedVideos(ctx context.Context, userID string) ([]models.VideoWithOwner, error)
}

// CommentStore captures comment persistence.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListForVideo(ctx context.Context, videoID string, page, limit int) (models.CommentPage, error)
	UpdateContent(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// TweetStore captures tweet persistence.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.TweetWithOwner, error)
	UpdateContent(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// PlaylistStore captures playlist persistence.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.PlaylistWithVideos, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, id string, patch models.PlaylistPatch) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// StatsStore aggregates dashboard numbers.
type StatsStore interface {
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// ResetTokenStore persists single-use password-reset tokens.
type ResetTokenStore interface {
	Save(ctx context.Context, token repositories.ResetToken) error
	Find(ctx context.Context, tokenHash string) (repositories.ResetToken, error)
	Delete(ctx context.Context, tokenHash string) error
}

// MediaStorage uploads and deletes media assets on the third-party host.
type MediaStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
	SameObject(a, b string) bool
}

// Mailer delivers transactional mail.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// nowOrDefault returns the injected clock or UTC wall time.
func nowOrDefault(nowFunc func() time.Time) time.Time {
	if nowFunc != nil {
		return nowFunc()
	}
	return time.Now().UTC()
}
