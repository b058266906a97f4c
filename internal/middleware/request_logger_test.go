package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func loggedHandler(t *testing.T, status int) (http.Handler, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	return handler, &buf
}

func TestRequestLoggerRecordsContentLength(t *testing.T) {
	handler, buf := loggedHandler(t, http.StatusCreated)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos", strings.NewReader("fake media bytes"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, `"content_length":16`) {
		t.Fatalf("expected content_length in log output, got %s", out)
	}
	if !strings.Contains(out, `"status":201`) {
		t.Fatalf("expected completion status in log output, got %s", out)
	}
}

func TestRequestLoggerSuppressesHealthyLivenessChecks(t *testing.T) {
	handler, buf := loggedHandler(t, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if buf.Len() != 0 {
		t.Fatalf("expected no log output for a healthy liveness check, got %s", buf.String())
	}
}

func TestRequestLoggerReportsFailingLivenessChecks(t *testing.T) {
	handler, buf := loggedHandler(t, http.StatusServiceUnavailable)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"status":503`) {
		t.Fatalf("expected failing liveness check to be logged, got %s", buf.String())
	}
}
