package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// TweetHandler implements short text post endpoints.
type TweetHandler struct {
	Tweets   TweetStore
	Sessions SessionManager
	NowFunc  func() time.Time
}

type tweetRequest struct {
	Content string `json:"content"`
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	now := nowOrDefault(h.NowFunc)
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   principal.UserID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		logger.Error("create tweet", "error", err, "ownerId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to create tweet")
		return
	}

	respondData(ctx, w, http.StatusCreated, tweet, "tweet created")
}

// List handles GET /api/v1/tweets, returning the caller's own tweets.
func (h TweetHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	tweets, err := h.Tweets.ListForOwner(ctx, principal.UserID)
	if err != nil {
		logger.Error("list tweets", "error", err, "ownerId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list tweets")
		return
	}

	respondData(ctx, w, http.StatusOK, tweets, "tweets")
}

// Update handles PATCH /api/v1/tweets/{tweetId}. Only the author may edit.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("tweetId")
	existing, err := h.Tweets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "tweet not found")
			return
		}
		logger.Error("load tweet", "error", err, "tweetId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load tweet")
		return
	}
	if existing.OwnerID != principal.UserID {
		respondError(ctx, w, http.StatusForbidden, "only the author may edit this tweet")
		return
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	updated, err := h.Tweets.UpdateContent(ctx, id, req.Content)
	if err != nil {
		logger.Error("update tweet", "error", err, "tweetId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update tweet")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "tweet updated")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}. Only the author may delete.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("tweetId")
	existing, err := h.Tweets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "tweet not found")
			return
		}
		logger.Error("load tweet", "error", err, "tweetId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load tweet")
		return
	}
	if existing.OwnerID != principal.UserID {
		respondError(ctx, w, http.StatusForbidden, "only the author may delete this tweet")
		return
	}

	if err := h.Tweets.Delete(ctx, id); err != nil {
		logger.Error("delete tweet", "error", err, "tweetId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete tweet")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "tweet deleted")
}
