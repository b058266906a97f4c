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

// CommentHandler implements comment endpoints for videos.
type CommentHandler struct {
	Comments CommentStore
	Sessions SessionManager
	NowFunc  func() time.Time
}

type commentRequest struct {
	Content string `json:"content"`
}

// Create handles POST /api/v1/comments/video/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	videoID := r.PathValue("videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	var req commentRequest
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
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   principal.UserID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("create comment", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to add comment")
		return
	}

	respondData(ctx, w, http.StatusCreated, comment, "comment added")
}

// List handles GET /api/v1/comments/video/{videoId}, newest first.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireAuth(h.Sessions, w, r); !ok {
		return
	}

	videoID := r.PathValue("videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	q := r.URL.Query()
	page := parseIntDefault(q.Get("page"), 1)
	limit := parseIntDefault(q.Get("limit"), 10)

	comments, err := h.Comments.ListForVideo(ctx, videoID, page, limit)
	if err != nil {
		logger.Error("list comments", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list comments")
		return
	}

	respondData(ctx, w, http.StatusOK, comments, "comments")
}

// Update handles PATCH /api/v1/comments/{commentId}. Only the author may edit.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("commentId")
	existing, err := h.Comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("load comment", "error", err, "commentId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load comment")
		return
	}
	if existing.OwnerID != principal.UserID {
		respondError(ctx, w, http.StatusForbidden, "only the author may edit this comment")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		respondError(ctx, w, http.StatusBadRequest, "content is required")
		return
	}

	updated, err := h.Comments.UpdateContent(ctx, id, req.Content)
	if err != nil {
		logger.Error("update comment", "error", err, "commentId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update comment")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "comment updated")
}

// Delete handles DELETE /api/v1/comments/{commentId}. Only the author may delete.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("commentId")
	existing, err := h.Comments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("load comment", "error", err, "commentId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load comment")
		return
	}
	if existing.OwnerID != principal.UserID {
		respondError(ctx, w, http.StatusForbidden, "only the author may delete this comment")
		return
	}

	if err := h.Comments.Delete(ctx, id); err != nil {
		logger.Error("delete comment", "error", err, "commentId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete comment")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "comment deleted")
}
