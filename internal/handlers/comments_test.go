package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

type inMemoryCommentStore struct {
	comments map[string]models.Comment
}

func newInMemoryCommentStore() *inMemoryCommentStore {
	return &inMemoryCommentStore{comments: make(map[string]models.Comment)}
}

func (s *inMemoryCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.comments[comment.ID] = comment
	return nil
}

func (s *inMemoryCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *inMemoryCommentStore) ListForVideo(_ context.Context, videoID string, page, limit int) (models.CommentPage, error) {
	var matched []models.CommentWithOwner
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			matched = append(matched, models.CommentWithOwner{Comment: comment})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return models.CommentPage{Comments: matched[start:end], Total: total, Page: page, Limit: limit}, nil
}

func (s *inMemoryCommentStore) UpdateContent(_ context.Context, id, content string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return comment, nil
}

func (s *inMemoryCommentStore) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func TestCommentHandlerCreate(t *testing.T) {
	store := newInMemoryCommentStore()
	handler := CommentHandler{Comments: store, Sessions: sessionsFor("u1")}

	req := authedRequest(http.MethodPost, "/api/v1/comments/video/v1",
		strings.NewReader(`{"content":"nice clip"}`))
	req.SetPathValue("videoId", "v1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if len(store.comments) != 1 {
		t.Fatalf("expected one stored comment, got %d", len(store.comments))
	}
	for _, comment := range store.comments {
		if comment.OwnerID != "u1" || comment.VideoID != "v1" {
			t.Fatalf("unexpected comment %+v", comment)
		}
	}
}

func TestCommentHandlerCreateRejectsEmptyContent(t *testing.T) {
	handler := CommentHandler{Comments: newInMemoryCommentStore(), Sessions: sessionsFor("u1")}

	req := authedRequest(http.MethodPost, "/api/v1/comments/video/v1",
		strings.NewReader(`{"content":"   "}`))
	req.SetPathValue("videoId", "v1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestCommentHandlerUpdateRejectsNonAuthor(t *testing.T) {
	store := newInMemoryCommentStore()
	store.comments["c1"] = models.Comment{ID: "c1", VideoID: "v1", OwnerID: "author", Content: "original"}
	handler := CommentHandler{Comments: store, Sessions: sessionsFor("intruder")}

	req := authedRequest(http.MethodPatch, "/api/v1/comments/c1",
		strings.NewReader(`{"content":"defaced"}`))
	req.SetPathValue("commentId", "c1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}
	if store.comments["c1"].Content != "original" {
		t.Fatal("comment must not change for a non-author")
	}
}

func TestCommentHandlerDeleteByAuthor(t *testing.T) {
	store := newInMemoryCommentStore()
	store.comments["c1"] = models.Comment{ID: "c1", VideoID: "v1", OwnerID: "author"}
	handler := CommentHandler{Comments: store, Sessions: sessionsFor("author")}

	req := authedRequest(http.MethodDelete, "/api/v1/comments/c1", nil)
	req.SetPathValue("commentId", "c1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if len(store.comments) != 0 {
		t.Fatal("expected comment removed")
	}
}
