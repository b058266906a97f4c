package handlers

import (
	"errors"
	"net/http"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/repositories"
)

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Sessions      SessionManager
}

// Toggle handles POST /api/v1/subscriptions/channel/{channelId}. Subscribing
// to yourself is rejected.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	channelID := r.PathValue("channelId")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}
	if channelID == principal.UserID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, principal.UserID, channelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logger.Error("toggle subscription", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle subscription")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed}, "subscription toggled")
}

// Subscribers handles GET /api/v1/subscriptions/channel/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if _, ok := requireAuth(h.Sessions, w, r); !ok {
		return
	}

	channelID := r.PathValue("channelId")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		logger.Error("list subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list subscribers")
		return
	}

	respondData(ctx, w, http.StatusOK, subscribers, "subscribers")
}

// Subscribed handles GET /api/v1/subscriptions/user.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := requireAuth(h.Sessions, w, r)
	if !ok {
		return
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, principal.UserID)
	if err != nil {
		logger.Error("list subscribed channels", "error", err, "userId", principal.UserID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list subscriptions")
		return
	}

	respondData(ctx, w, http.StatusOK, channels, "subscribed channels")
}
