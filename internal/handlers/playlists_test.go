package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

type inMemoryPlaylistStore struct {
	playlists map[string]models.Playlist
	videos    map[string][]string
}

func newInMemoryPlaylistStore() *inMemoryPlaylistStore {
	return &inMemoryPlaylistStore{
		playlists: make(map[string]models.Playlist),
		videos:    make(map[string][]string),
	}
}

func (s *inMemoryPlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *inMemoryPlaylistStore) FindByID(_ context.Context, id string) (models.PlaylistWithVideos, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.PlaylistWithVideos{}, repositories.ErrNotFound
	}
	out := models.PlaylistWithVideos{Playlist: playlist}
	for _, videoID := range s.videos[id] {
		out.Videos = append(out.Videos, models.Video{ID: videoID})
	}
	return out, nil
}

func (s *inMemoryPlaylistStore) ListForOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	var out []models.Playlist
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			out = append(out, playlist)
		}
	}
	return out, nil
}

func (s *inMemoryPlaylistStore) Update(_ context.Context, id string, patch models.PlaylistPatch) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	if patch.Name != nil {
		playlist.Name = *patch.Name
	}
	if patch.Description != nil {
		playlist.Description = *patch.Description
	}
	s.playlists[id] = playlist
	return playlist, nil
}

func (s *inMemoryPlaylistStore) Delete(_ context.Context, id string) error {
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	delete(s.videos, id)
	return nil
}

func (s *inMemoryPlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	for _, existing := range s.videos[playlistID] {
		if existing == videoID {
			return repositories.ErrConflict
		}
	}
	s.videos[playlistID] = append(s.videos[playlistID], videoID)
	return nil
}

func (s *inMemoryPlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	entries := s.videos[playlistID]
	for i, existing := range entries {
		if existing == videoID {
			s.videos[playlistID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func TestPlaylistHandlerCreate(t *testing.T) {
	store := newInMemoryPlaylistStore()
	handler := PlaylistHandler{Playlists: store, Sessions: sessionsFor("u1")}

	req := authedRequest(http.MethodPost, "/api/v1/playlists",
		strings.NewReader(`{"name":"Favorites","description":"the good stuff"}`))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if len(store.playlists) != 1 {
		t.Fatalf("expected one playlist, got %d", len(store.playlists))
	}
}

func TestPlaylistHandlerCreateRequiresNameAndDescription(t *testing.T) {
	store := newInMemoryPlaylistStore()
	handler := PlaylistHandler{Playlists: store, Sessions: sessionsFor("u1")}

	for _, body := range []string{`{"name":"Favorites"}`, `{"description":"no name"}`} {
		req := authedRequest(http.MethodPost, "/api/v1/playlists", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected status %d got %d", body, http.StatusBadRequest, rec.Code)
		}
	}
	if len(store.playlists) != 0 {
		t.Fatalf("expected no playlists, got %d", len(store.playlists))
	}
}

func TestPlaylistHandlerAddVideoPreservesOrderAndRejectsDuplicates(t *testing.T) {
	store := newInMemoryPlaylistStore()
	store.playlists["p1"] = models.Playlist{ID: "p1", OwnerID: "u1"}
	handler := PlaylistHandler{Playlists: store, Sessions: sessionsFor("u1")}

	add := func(videoID string) *httptest.ResponseRecorder {
		req := authedRequest(http.MethodPatch, "/api/v1/playlists/p1/videos/"+videoID, nil)
		req.SetPathValue("playlistId", "p1")
		req.SetPathValue("videoId", videoID)
		rec := httptest.NewRecorder()
		handler.AddVideo(rec, req)
		return rec
	}

	for _, videoID := range []string{"v1", "v2", "v3"} {
		if rec := add(videoID); rec.Code != http.StatusOK {
			t.Fatalf("add %s: expected status %d got %d", videoID, http.StatusOK, rec.Code)
		}
	}

	if rec := add("v2"); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate add: expected status %d got %d", http.StatusConflict, rec.Code)
	}

	got := store.videos["p1"]
	want := []string{"v1", "v2", "v3"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected insertion order %v, got %v", want, got)
		}
	}
}

func TestPlaylistHandlerRemoveMissingVideo(t *testing.T) {
	store := newInMemoryPlaylistStore()
	store.playlists["p1"] = models.Playlist{ID: "p1", OwnerID: "u1"}
	handler := PlaylistHandler{Playlists: store, Sessions: sessionsFor("u1")}

	req := authedRequest(http.MethodDelete, "/api/v1/playlists/p1/videos/v9", nil)
	req.SetPathValue("playlistId", "p1")
	req.SetPathValue("videoId", "v9")
	rec := httptest.NewRecorder()

	handler.RemoveVideo(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPlaylistHandlerModificationRequiresOwnership(t *testing.T) {
	store := newInMemoryPlaylistStore()
	store.playlists["p1"] = models.Playlist{ID: "p1", OwnerID: "owner", Name: "original"}
	handler := PlaylistHandler{Playlists: store, Sessions: sessionsFor("intruder")}

	req := authedRequest(http.MethodPatch, "/api/v1/playlists/p1",
		strings.NewReader(`{"name":"stolen"}`))
	req.SetPathValue("playlistId", "p1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	if store.playlists["p1"].Name != "original" {
		t.Fatal("playlist must not change for a non-owner")
	}

	addReq := authedRequest(http.MethodPatch, "/api/v1/playlists/p1/videos/v1", nil)
	addReq.SetPathValue("playlistId", "p1")
	addReq.SetPathValue("videoId", "v1")
	addRec := httptest.NewRecorder()

	handler.AddVideo(addRec, addReq)

	if addRec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, addRec.Code)
	}
}

func TestPlaylistHandlerGetIsReadableByAnyone(t *testing.T) {
	store := newInMemoryPlaylistStore()
	store.playlists["p1"] = models.Playlist{ID: "p1", OwnerID: "owner", Name: "public list"}
	store.videos["p1"] = []string{"v1", "v2"}
	handler := PlaylistHandler{Playlists: store, Sessions: sessionsFor("viewer")}

	req := authedRequest(http.MethodGet, "/api/v1/playlists/p1", nil)
	req.SetPathValue("playlistId", "p1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "public list") {
		t.Fatalf("expected playlist body, got %s", rec.Body.String())
	}
}
