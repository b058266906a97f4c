package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name    string
		pinger  Pinger
		status  int
	}{
		{name: "healthy", pinger: stubPinger{}, status: http.StatusOK},
		{name: "database down", pinger: stubPinger{err: errors.New("connection refused")}, status: http.StatusServiceUnavailable},
		{name: "no database configured", pinger: nil, status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := HealthHandler{DB: tc.pinger}
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()

			handler.Check(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d got %d", tc.status, rec.Code)
			}
		})
	}
}
