package handlers

import (
	"errors"
	"net/http"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// LikeHandler implements the like toggles and the liked-video listing.
type LikeHandler struct {
	Likes    LikeStore
	Sessions SessionManager
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, "videoId")
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, "commentId")
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, "tweetId")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget, pathParam string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	targetID := r.PathValue(pathParam)
	if targetID == "" {
		respondError(ctx, w, http.StatusBadRequest, "target id is required")
		return
	}

	liked, err := h.Likes.Toggle(ctx, principal.UserID, target, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, string(target)+" not found")
			return
		}
		logger.Error("toggle like", "error", err, "target", string(target), "targetId", targetID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle like")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]bool{"liked": liked}, "like toggled")
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	videos, err := h.Likes.LikedVideos(ctx, principal.UserID)
	if err != nil {
		logger.Error("list liked videos", "error", err, "userId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list liked videos")
		return
	}

	respondData(ctx, w, http.StatusOK, videos, "liked videos")
}
