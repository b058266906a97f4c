package handlers

import (
	"net/http"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/repositories"
)

// DashboardHandler serves the channel owner's own aggregates.
type DashboardHandler struct {
	Stats    StatsStore
	Videos   VideoStore
	Sessions SessionManager
}

// ServeStats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) ServeStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	stats, err := h.Stats.ChannelStats(ctx, principal.UserID)
	if err != nil {
		logger.Error("load channel stats", "error", err, "userId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to load channel stats")
		return
	}

	respondData(ctx, w, http.StatusOK, stats, "channel stats")
}

// ServeVideos handles GET /api/v1/dashboard/videos, listing the caller's uploads
// including unpublished drafts.
func (h DashboardHandler) ServeVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := h.Videos.List(ctx, repositories.VideoListOptions{
		OwnerID:            principal.UserID,
		IncludeUnpublished: true,
		Page:               parseIntDefault(q.Get("page"), 1),
		Limit:              parseIntDefault(q.Get("limit"), 10),
	})
	if err != nil {
		logger.Error("list channel videos", "error", err, "userId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list channel videos")
		return
	}

	respondData(ctx, w, http.StatusOK, page, "channel videos")
}
