package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// VideoHandler implements the video catalog endpoints.
type VideoHandler struct {
	Videos   VideoStore
	Users    UserStore
	Sessions SessionManager
	Storage  MediaStorage
	NowFunc  func() time.Time
}

// List handles GET /api/v1/videos. Supports query, sortBy, sortType, page
// and limit parameters; only published videos are returned unless the
// caller filters by their own userId.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := repositories.VideoListOptions{
		Query:    strings.TrimSpace(q.Get("query")),
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    parseIntDefault(q.Get("limit"), 10),
		OwnerID:  strings.TrimSpace(q.Get("userId")),
	}
	// Owners may see their own drafts when browsing their uploads.
	opts.IncludeUnpublished = opts.OwnerID != "" && opts.OwnerID == principal.UserID

	page, err := h.Videos.List(ctx, opts)
	if err != nil {
		logger.Error("list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list videos")
		return
	}

	respondData(ctx, w, http.StatusOK, page, "videos")
}

// Publish handles POST /api/v1/videos (multipart). A missing thumbnail
// falls back to the video location itself so clients always have a frame
// to render.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		respondError(ctx, w, http.StatusBadRequest, "title and description are required")
		return
	}

	duration := 0.0
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			respondError(ctx, w, http.StatusBadRequest, "duration must be a non-negative number")
			return
		}
		duration = parsed
	}

	videoFile := formFile(r, "videoFile")
	if videoFile == nil {
		respondError(ctx, w, http.StatusBadRequest, "videoFile is required")
		return
	}

	videoURL, err := saveUpload(ctx, h.Storage, "videos", videoFile)
	if err != nil {
		logger.Error("video upload failed", "error", err)
		respondError(ctx, w, http.StatusBadGateway, "video upload failed")
		return
	}

	thumbnailURL := videoURL
	if thumb := formFile(r, "thumbnail"); thumb != nil {
		thumbnailURL, err = saveUpload(ctx, h.Storage, "thumbnails", thumb)
		if err != nil {
			logger.Error("thumbnail upload failed", "error", err)
			respondError(ctx, w, http.StatusBadGateway, "thumbnail upload failed")
			return
		}
	}

	now := nowOrDefault(h.NowFunc)
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      principal.UserID,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Title:        title,
		Description:  description,
		Duration:     duration,
		Published:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("create video", "error", err, "ownerId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to publish video")
		return
	}

	respondData(ctx, w, http.StatusCreated, video, "video published")
}

// Get handles GET /api/v1/videos/{videoId}. Fetching a video records it in the
// viewer's watch history; only the first visit increments the view count.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("videoId")
	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("load video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}

	if !video.Published && video.OwnerID != principal.UserID {
		respondError(ctx, w, http.StatusNotFound, "video not found")
		return
	}

	if err := h.Users.RecordView(ctx, principal.UserID, video.ID); err != nil {
		logger.Warn("record view", "error", err, "videoId", video.ID)
	} else if video.OwnerID != principal.UserID {
		// The stored count may have just moved; reload is cheap enough here.
		if refreshed, err := h.Videos.FindByID(ctx, id); err == nil {
			video = refreshed
		}
	}

	respondData(ctx, w, http.StatusOK, video, "video")
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Update handles PATCH /api/v1/videos/{videoId} (multipart or JSON). Only the
// owner may update; a replaced thumbnail's previous asset is deleted unless
// it is the video object itself.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("videoId")
	existing, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("load video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}
	if existing.OwnerID != principal.UserID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may update this video")
		return
	}

	var patch models.VideoPatch
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		if r.Form.Has("title") {
			title := strings.TrimSpace(r.FormValue("title"))
			patch.Title = &title
		}
		if r.Form.Has("description") {
			description := strings.TrimSpace(r.FormValue("description"))
			patch.Description = &description
		}
		if thumb := formFile(r, "thumbnail"); thumb != nil {
			location, err := saveUpload(ctx, h.Storage, "thumbnails", thumb)
			if err != nil {
				logger.Error("thumbnail upload failed", "error", err)
				respondError(ctx, w, http.StatusBadGateway, "thumbnail upload failed")
				return
			}
			patch.ThumbnailURL = &location
		}
	} else {
		var req updateVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}
		patch.Title = req.Title
		patch.Description = req.Description
	}

	if patch.Title != nil && *patch.Title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title must not be empty")
		return
	}
	if patch.Title == nil && patch.Description == nil && patch.ThumbnailURL == nil {
		respondError(ctx, w, http.StatusBadRequest, "nothing to update")
		return
	}

	updated, previousThumbnail, err := h.Videos.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("update video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update video")
		return
	}

	if patch.ThumbnailURL != nil && previousThumbnail != "" &&
		!h.Storage.SameObject(previousThumbnail, updated.VideoURL) {
		if err := h.Storage.Delete(ctx, previousThumbnail); err != nil {
			logger.Warn("delete superseded thumbnail", "location", previousThumbnail, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, updated, "video updated")
}

// TogglePublish handles PATCH /api/v1/videos/{videoId}/toggle-publish.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("videoId")
	existing, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("load video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}
	if existing.OwnerID != principal.UserID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may change publish state")
		return
	}

	published, err := h.Videos.TogglePublish(ctx, id)
	if err != nil {
		logger.Error("toggle publish", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to change publish state")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]bool{"published": published}, "publish state changed")
}

// Delete handles DELETE /api/v1/videos/{videoId}. Media objects are removed from
// storage first; an upstream failure aborts the delete so the database row
// never outlives its assets silently.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("videoId")
	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("load video", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load video")
		return
	}
	if video.OwnerID != principal.UserID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may delete this video")
		return
	}

	if err := h.Storage.Delete(ctx, video.VideoURL); err != nil {
		logger.Error("delete video object", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusBadGateway, "failed to delete video media")
		return
	}
	// Skip the thumbnail when it is the video object under another name.
	if !h.Storage.SameObject(video.ThumbnailURL, video.VideoURL) {
		if err := h.Storage.Delete(ctx, video.ThumbnailURL); err != nil {
			logger.Error("delete thumbnail object", "error", err, "videoId", id)
			respondError(ctx, w, http.StatusBadGateway, "failed to delete video media")
			return
		}
	}

	if err := h.Videos.Delete(ctx, id); err != nil {
		logger.Error("delete video row", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete video")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "video deleted")
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
