package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clipstream/backend/internal/logging"
)

// envelope is the uniform response body: status mirrors the HTTP code, data
// carries the payload (null on errors), message is human readable.
type envelope struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(ctx, w, envelope{Status: status, Data: data, Message: message})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeEnvelope(ctx, w, envelope{Status: status, Data: nil, Message: message})
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", body.Status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case body.Status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", body.Status, "message", body.Message)
	case body.Status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", body.Status, "message", body.Message)
	}
}
