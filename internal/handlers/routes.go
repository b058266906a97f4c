package handlers

import (
	"net/http"
	"time"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Subscriptions SubscriptionStore
	Likes         LikeStore
	Comments      CommentStore
	Tweets        TweetStore
	Playlists     PlaylistStore
	Stats         StatsStore
	ResetTokens   ResetTokenStore
	Storage       MediaStorage
	Mail          Mailer
	AuthLimiter   RateLimiter
	DB            Pinger

	PublicBaseURL string
	ResetTokenTTL time.Duration
	NowFunc       func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{DB: deps.DB}
	users := UserHandler{
		Users:         deps.Users,
		Sessions:      deps.Sessions,
		ResetTokens:   deps.ResetTokens,
		Storage:       deps.Storage,
		Mail:          deps.Mail,
		Limiter:       deps.AuthLimiter,
		PublicBaseURL: deps.PublicBaseURL,
		ResetTokenTTL: deps.ResetTokenTTL,
		NowFunc:       deps.NowFunc,
	}
	videos := VideoHandler{
		Videos:   deps.Videos,
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Storage:  deps.Storage,
		NowFunc:  deps.NowFunc,
	}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Sessions: deps.Sessions}
	likes := LikeHandler{Likes: deps.Likes, Sessions: deps.Sessions}
	comments := CommentHandler{Comments: deps.Comments, Sessions: deps.Sessions, NowFunc: deps.NowFunc}
	tweets := TweetHandler{Tweets: deps.Tweets, Sessions: deps.Sessions, NowFunc: deps.NowFunc}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Sessions: deps.Sessions, NowFunc: deps.NowFunc}
	dashboard := DashboardHandler{Stats: deps.Stats, Videos: deps.Videos, Sessions: deps.Sessions}

	mux.HandleFunc("GET /healthz", health.Check)

	mux.HandleFunc("POST /api/v1/users/register", users.Register)
	mux.HandleFunc("POST /api/v1/users/login", users.Login)
	mux.HandleFunc("POST /api/v1/users/logout", users.Logout)
	mux.HandleFunc("POST /api/v1/users/refresh-token", users.Refresh)
	mux.HandleFunc("POST /api/v1/users/change-password", users.ChangePassword)
	mux.HandleFunc("PATCH /api/v1/users/update-account-details", users.UpdateAccount)
	mux.HandleFunc("PATCH /api/v1/users/update-avatar", users.UpdateAvatar)
	mux.HandleFunc("PATCH /api/v1/users/update-cover-photo", users.UpdateCover)
	mux.HandleFunc("GET /api/v1/users/channel/{username}", users.Channel)
	mux.HandleFunc("GET /api/v1/users/watch-history", users.WatchHistory)
	mux.HandleFunc("POST /api/v1/users/reset-password", users.RequestPasswordReset)
	mux.HandleFunc("POST /api/v1/users/reset-password/{userId}/{token}", users.ResetPassword)

	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.HandleFunc("POST /api/v1/videos", videos.Publish)
	mux.HandleFunc("GET /api/v1/videos/{videoId}", videos.Get)
	mux.HandleFunc("PATCH /api/v1/videos/{videoId}", videos.Update)
	mux.HandleFunc("DELETE /api/v1/videos/{videoId}", videos.Delete)
	mux.HandleFunc("PATCH /api/v1/videos/{videoId}/toggle-publish", videos.TogglePublish)

	mux.HandleFunc("POST /api/v1/subscriptions/channel/{channelId}", subscriptions.Toggle)
	mux.HandleFunc("GET /api/v1/subscriptions/channel/{channelId}", subscriptions.Subscribers)
	mux.HandleFunc("GET /api/v1/subscriptions/user", subscriptions.Subscribed)

	mux.HandleFunc("POST /api/v1/likes/toggle/v/{videoId}", likes.ToggleVideo)
	mux.HandleFunc("POST /api/v1/likes/toggle/c/{commentId}", likes.ToggleComment)
	mux.HandleFunc("POST /api/v1/likes/toggle/t/{tweetId}", likes.ToggleTweet)
	mux.HandleFunc("GET /api/v1/likes/videos", likes.LikedVideos)

	mux.HandleFunc("POST /api/v1/comments/video/{videoId}", comments.Create)
	mux.HandleFunc("GET /api/v1/comments/video/{videoId}", comments.List)
	mux.HandleFunc("PATCH /api/v1/comments/{commentId}", comments.Update)
	mux.HandleFunc("DELETE /api/v1/comments/{commentId}", comments.Delete)

	mux.HandleFunc("POST /api/v1/tweets", tweets.Create)
	mux.HandleFunc("GET /api/v1/tweets", tweets.List)
	mux.HandleFunc("PATCH /api/v1/tweets/{tweetId}", tweets.Update)
	mux.HandleFunc("DELETE /api/v1/tweets/{tweetId}", tweets.Delete)

	mux.HandleFunc("POST /api/v1/playlists", playlists.Create)
	mux.HandleFunc("GET /api/v1/playlists/user/{userId}", playlists.ListForUser)
	mux.HandleFunc("GET /api/v1/playlists/{playlistId}", playlists.Get)
	mux.HandleFunc("PATCH /api/v1/playlists/{playlistId}", playlists.Update)
	mux.HandleFunc("DELETE /api/v1/playlists/{playlistId}", playlists.Delete)
	mux.HandleFunc("PATCH /api/v1/playlists/{playlistId}/videos/{videoId}", playlists.AddVideo)
	mux.HandleFunc("DELETE /api/v1/playlists/{playlistId}/videos/{videoId}", playlists.RemoveVideo)

	mux.HandleFunc("GET /api/v1/dashboard/stats", dashboard.ServeStats)
	mux.HandleFunc("GET /api/v1/dashboard/videos", dashboard.ServeVideos)
}
