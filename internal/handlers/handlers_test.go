package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
)

// fakeSessions accepts the literal token "valid-token" and resolves it to
// the configured principal.
type fakeSessions struct {
	principal   auth.Principal
	issued      models.SessionTokens
	issueErr    error
	refreshed   models.SessionTokens
	refreshErr  error
	revokedIDs  []string
	verifyCalls int
}

func (s *fakeSessions) Issue(_ context.Context, user models.User) (models.SessionTokens, error) {
	if s.issueErr != nil {
		return models.SessionTokens{}, s.issueErr
	}
	if s.issued.AccessToken == "" {
		s.issued = models.SessionTokens{
			AccessToken:      "access-" + user.ID,
			AccessExpiresAt:  time.Now().Add(15 * time.Minute),
			RefreshToken:     "refresh-" + user.ID,
			RefreshExpiresAt: time.Now().Add(24 * time.Hour),
		}
	}
	return s.issued, nil
}

func (s *fakeSessions) Refresh(_ context.Context, refreshToken string) (models.SessionTokens, error) {
	if s.refreshErr != nil {
		return models.SessionTokens{}, s.refreshErr
	}
	return s.refreshed, nil
}

func (s *fakeSessions) Revoke(_ context.Context, userID string) {
	s.revokedIDs = append(s.revokedIDs, userID)
}

func (s *fakeSessions) Verify(accessToken string) (auth.Principal, error) {
	s.verifyCalls++
	if accessToken != "valid-token" {
		return auth.Principal{}, auth.ErrInvalidAccessToken
	}
	return s.principal, nil
}

func sessionsFor(userID string) *fakeSessions {
	return &fakeSessions{principal: auth.Principal{UserID: userID, Username: "user-" + userID}}
}

// fakeStorage records uploads and deletes in memory.
type fakeStorage struct {
	saved   map[string]string
	deleted []string
	saveErr error
	delErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string]string)}
}

func (s *fakeStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	_, _ = io.Copy(io.Discard, r)
	location := "https://media.test/" + name
	s.saved[name] = location
	return location, nil
}

func (s *fakeStorage) Delete(_ context.Context, location string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.deleted = append(s.deleted, location)
	return nil
}

func (s *fakeStorage) SameObject(a, b string) bool { return a == b }

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer valid-token")
	return req
}

type envelopeBody struct {
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Status != rec.Code {
		t.Fatalf("envelope status %d does not match http status %d", body.Status, rec.Code)
	}
	return body
}
