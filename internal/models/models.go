package models

import "time"

// User represents an account within the ClipStream platform. Password holds
// the bcrypt hash and is never serialized to clients; JSON projections use
// Profile instead.
type User struct {
	ID               string
	Username         string
	Email            string
	Password         string
	FullName         string
	AvatarURL        string
	CoverURL         string
	RefreshTokenHash string
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Profile returns the client-facing projection of the user.
func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		CoverURL:  u.CoverURL,
		CreatedAt: u.CreatedAt,
	}
}

// Profile is a User stripped of credentials.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	AvatarURL string    `json:"avatarUrl"`
	CoverURL  string    `json:"coverUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnerSummary is the minimal identity attached to owned resources in list
// responses.
type OwnerSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

// ChannelProfile decorates a Profile with the subscription aggregates shown
// on a channel page.
type ChannelProfile struct {
	Profile
	SubscriberCount   int64 `json:"subscriberCount"`
	SubscribedToCount int64 `json:"subscribedToCount"`
	IsSubscribed      bool  `json:"isSubscribed"`
}

// Video stores uploaded video metadata. OwnerID is immutable after creation.
type Video struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	VideoURL     string    `json:"videoUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VideoWithOwner joins a Video with its owner's summary for feed-style
// responses.
type VideoWithOwner struct {
	Video
	Owner OwnerSummary `json:"owner"`
}

// VideoPatch carries the optional fields of a video update. Nil leaves the
// field untouched.
type VideoPatch struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
}

// Tweet is a short text post owned by a user.
type Tweet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TweetWithOwner joins a Tweet with its owner summary and like count.
type TweetWithOwner struct {
	Tweet
	Owner     OwnerSummary `json:"owner"`
	LikeCount int64        `json:"likeCount"`
}

// Comment is attached to a single video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentWithOwner joins a Comment with its owner summary and like count.
type CommentWithOwner struct {
	Comment
	Owner     OwnerSummary `json:"owner"`
	LikeCount int64        `json:"likeCount"`
}

// LikeTarget names the kind of entity a like toggle applies to.
type LikeTarget string

const (
	LikeTargetVideo   LikeTarget = "video"
	LikeTargetComment LikeTarget = "comment"
	LikeTargetTweet   LikeTarget = "tweet"
)

// Subscription links a subscriber to a channel (a user viewed as a content
// owner). At most one row exists per (subscriber, channel) pair.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Channel is a subscribed-to user together with its own subscriber count.
type Channel struct {
	OwnerSummary
	SubscriberCount int64 `json:"subscriberCount"`
}

// Playlist is an ordered, duplicate-free collection of videos.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoCount  int64     `json:"videoCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PlaylistWithVideos includes the resolved video documents in playlist order.
type PlaylistWithVideos struct {
	Playlist
	Videos []Video `json:"videos"`
}

// PlaylistPatch carries the optional fields of a playlist update.
type PlaylistPatch struct {
	Name        *string
	Description *string
}

// AccountPatch carries the optional fields of an account-details update.
type AccountPatch struct {
	FullName *string
	Email    *string
}

// ChannelStats aggregates the dashboard numbers for a channel owner.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// VideoPage is one page of a video listing plus the total match count
// computed in the same query.
type VideoPage struct {
	Videos []VideoWithOwner `json:"videos"`
	Total  int64            `json:"total"`
	Page   int              `json:"page"`
	Limit  int              `json:"limit"`
}

// CommentPage is one page of a video's comments.
type CommentPage struct {
	Comments []CommentWithOwner `json:"comments"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Limit    int                `json:"limit"`
}
