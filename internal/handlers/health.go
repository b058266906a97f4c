package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/clipstream/backend/internal/logging"
)

// Pinger reports backing-store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	DB Pinger
}

// Check handles GET /healthz. The probe fails when the database is
// unreachable.
func (h HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.DB != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(pingCtx); err != nil {
			logging.FromContext(ctx).Error("health ping failed", "error", err)
			respondError(ctx, w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}

	respondData(ctx, w, http.StatusOK, map[string]string{"status": "ok"}, "healthy")
}
