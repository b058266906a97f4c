package handlers

import (
	"context"
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

// PlaylistHandler implements playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Sessions  SessionManager
	NowFunc   func() time.Time
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" || req.Description == "" {
		respondError(ctx, w, http.StatusBadRequest, "name and description are required")
		return
	}

	now := nowOrDefault(h.NowFunc)
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     principal.UserID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		logger.Error("create playlist", "error", err, "ownerId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to create playlist")
		return
	}

	respondData(ctx, w, http.StatusCreated, playlist, "playlist created")
}

// ListForUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireAuth(h.Sessions, w, r); !ok {
		return
	}

	ownerID := r.PathValue("userId")
	if ownerID == "" {
		respondError(ctx, w, http.StatusBadRequest, "userId is required")
		return
	}

	playlists, err := h.Playlists.ListForOwner(ctx, ownerID)
	if err != nil {
		logger.Error("list playlists", "error", err, "ownerId", ownerID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list playlists")
		return
	}

	respondData(ctx, w, http.StatusOK, playlists, "playlists")
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireAuth(h.Sessions, w, r); !ok {
		return
	}

	id := r.PathValue("playlistId")
	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return
		}
		logger.Error("load playlist", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, playlist, "playlist")
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Update handles PATCH /api/v1/playlists/{playlistId}. Only the owner may update.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("playlistId")
	if _, err := h.loadOwned(ctx, w, id, principal.UserID); err != nil {
		return
	}

	var req updatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil && req.Description == nil {
		respondError(ctx, w, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		respondError(ctx, w, http.StatusBadRequest, "name must not be empty")
		return
	}

	updated, err := h.Playlists.Update(ctx, id, models.PlaylistPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		logger.Error("update playlist", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "playlist updated")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}. Only the owner may delete.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("playlistId")
	if _, err := h.loadOwned(ctx, w, id, principal.UserID); err != nil {
		return
	}

	if err := h.Playlists.Delete(ctx, id); err != nil {
		logger.Error("delete playlist", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete playlist")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "playlist deleted")
}

// AddVideo handles PATCH /api/v1/playlists/{playlistId}/videos/{videoId}. Duplicates
// are rejected with 409.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("playlistId")
	videoID := r.PathValue("videoId")
	if _, err := h.loadOwned(ctx, w, id, principal.UserID); err != nil {
		return
	}

	if err := h.Playlists.AddVideo(ctx, id, videoID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "video already in playlist")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "video not found")
		default:
			logger.Error("add playlist video", "error", err, "playlistId", id, "videoId", videoID)
			respondError(ctx, w, http.StatusInternalServerError, "unable to add video")
		}
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "video added to playlist")
}

// RemoveVideo handles DELETE /api/v1/playlists/{playlistId}/videos/{videoId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	id := r.PathValue("playlistId")
	videoID := r.PathValue("videoId")
	if _, err := h.loadOwned(ctx, w, id, principal.UserID); err != nil {
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, id, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not in playlist")
			return
		}
		logger.Error("remove playlist video", "error", err, "playlistId", id, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to remove video")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "video removed from playlist")
}

// loadOwned fetches the playlist and enforces ownership, writing the error
// response itself. The returned error only signals the caller to stop.
func (h PlaylistHandler) loadOwned(ctx context.Context, w http.ResponseWriter, id, userID string) (models.PlaylistWithVideos, error) {
	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "playlist not found")
			return models.PlaylistWithVideos{}, err
		}
		logging.FromContext(ctx).Error("load playlist", "error", err, "playlistId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load playlist")
		return models.PlaylistWithVideos{}, err
	}
	if playlist.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may modify this playlist")
		return models.PlaylistWithVideos{}, errors.New("forbidden")
	}
	return playlist, nil
}
