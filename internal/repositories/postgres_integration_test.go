package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipstream/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx,
		"TRUNCATE TABLE playlist_videos, playlists, likes, subscriptions, watch_history, comments, tweets, videos, password_reset_tokens, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password-hash",
		FullName:  "Test " + username,
		AvatarURL: "https://media.test/avatars/" + username + ".png",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user %s: %v", username, err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, published bool) models.Video {
	t.Helper()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		VideoURL:     "https://media.test/videos/" + uuid.NewString() + ".mp4",
		ThumbnailURL: "https://media.test/thumbnails/" + uuid.NewString() + ".png",
		Title:        title,
		Description:  "about " + title,
		Duration:     42,
		Published:    published,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video %s: %v", title, err)
	}
	return video
}

func TestPostgresUserRepository_CreateFindAndConflicts(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := user
	dup.ID = uuid.NewString()
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate username, got %v", err)
	}

	fetched, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if fetched.ID != user.ID || fetched.Email != user.Email {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	if _, err := repo.FindByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing email, got %v", err)
	}
}

func TestPostgresUserRepository_RefreshTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)
	if err := repo.SaveRefreshToken(ctx, user.ID, "hash-1", expires); err != nil {
		t.Fatalf("save refresh token: %v", err)
	}

	found, err := repo.FindByRefreshTokenHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("find by refresh hash: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, found.ID)
	}

	// Rotation replaces the stored hash; the old one stops matching.
	if err := repo.SaveRefreshToken(ctx, user.ID, "hash-2", expires); err != nil {
		t.Fatalf("rotate refresh token: %v", err)
	}
	if _, err := repo.FindByRefreshTokenHash(ctx, "hash-1"); err == nil {
		t.Fatal("superseded refresh token must not resolve")
	}

	if err := repo.ClearRefreshToken(ctx, user.ID); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	if _, err := repo.FindByRefreshTokenHash(ctx, "hash-2"); err == nil {
		t.Fatal("cleared refresh token must not resolve")
	}
}

func TestPostgresUserRepository_WatchHistoryIdempotentViews(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)

	owner := createTestUser(t, userRepo, "owner")
	viewer := createTestUser(t, userRepo, "viewer")
	first := createTestVideo(t, videoRepo, owner.ID, "first", true)
	second := createTestVideo(t, videoRepo, owner.ID, "second", true)

	for i := 0; i < 3; i++ {
		if err := userRepo.RecordView(ctx, viewer.ID, first.ID); err != nil {
			t.Fatalf("record view %d: %v", i, err)
		}
	}
	if err := userRepo.RecordView(ctx, viewer.ID, second.ID); err != nil {
		t.Fatalf("record second view: %v", err)
	}

	fetched, err := videoRepo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if fetched.Views != 1 {
		t.Fatalf("repeat views by the same user must count once, got %d", fetched.Views)
	}

	history, err := userRepo.WatchHistory(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].ID != first.ID || history[1].ID != second.ID {
		t.Fatalf("expected first-watched order [%s %s], got [%s %s]",
			first.ID, second.ID, history[0].ID, history[1].ID)
	}
	if history[0].Owner.Username != "owner" {
		t.Fatalf("expected owner summary resolved, got %+v", history[0].Owner)
	}
}

func TestPostgresVideoRepository_ListPagination(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")

	for i := 0; i < 25; i++ {
		createTestVideo(t, videoRepo, owner.ID, fmt.Sprintf("clip %02d", i), true)
	}
	createTestVideo(t, videoRepo, owner.ID, "draft", false)

	page, err := videoRepo.List(ctx, VideoListOptions{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if len(page.Videos) != 5 {
		t.Fatalf("expected 5 videos on the last page, got %d", len(page.Videos))
	}
	if page.Total != 25 {
		t.Fatalf("expected total 25 published videos, got %d", page.Total)
	}

	drafts, err := videoRepo.List(ctx, VideoListOptions{OwnerID: owner.ID, IncludeUnpublished: true, Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("list with drafts: %v", err)
	}
	if drafts.Total != 26 {
		t.Fatalf("expected 26 videos including the draft, got %d", drafts.Total)
	}

	search, err := videoRepo.List(ctx, VideoListOptions{Query: "clip 07", Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("search list: %v", err)
	}
	if search.Total != 1 || search.Videos[0].Title != "clip 07" {
		t.Fatalf("expected a single title match, got %+v", search.Videos)
	}
}

func TestPostgresSubscriptionRepository_ToggleParity(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	repo := NewPostgresSubscriptionRepository(testPool)

	subscriber := createTestUser(t, userRepo, "subscriber")
	channel := createTestUser(t, userRepo, "channel")

	subscribed, err := repo.Toggle(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !subscribed {
		t.Fatal("first toggle must subscribe")
	}

	subscribers, err := repo.Subscribers(ctx, channel.ID)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subscribers) != 1 || subscribers[0].ID != subscriber.ID {
		t.Fatalf("expected one subscriber, got %+v", subscribers)
	}

	subscribed, err = repo.Toggle(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if subscribed {
		t.Fatal("second toggle must unsubscribe")
	}

	subscribers, err = repo.Subscribers(ctx, channel.ID)
	if err != nil {
		t.Fatalf("list subscribers after unsubscribe: %v", err)
	}
	if len(subscribers) != 0 {
		t.Fatalf("expected no subscribers, got %+v", subscribers)
	}
}

func TestPostgresLikeRepository_TogglePerTarget(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	likeRepo := NewPostgresLikeRepository(testPool)

	owner := createTestUser(t, userRepo, "owner")
	fan := createTestUser(t, userRepo, "fan")
	video := createTestVideo(t, videoRepo, owner.ID, "likeable", true)

	liked, err := likeRepo.Toggle(ctx, fan.ID, models.LikeTargetVideo, video.ID)
	if err != nil {
		t.Fatalf("like video: %v", err)
	}
	if !liked {
		t.Fatal("first toggle must like")
	}

	// A second like of the same video by the same user is the unlike path,
	// not a duplicate row.
	liked, err = likeRepo.Toggle(ctx, fan.ID, models.LikeTargetVideo, video.ID)
	if err != nil {
		t.Fatalf("unlike video: %v", err)
	}
	if liked {
		t.Fatal("second toggle must unlike")
	}

	if _, err := likeRepo.Toggle(ctx, fan.ID, models.LikeTargetVideo, video.ID); err != nil {
		t.Fatalf("re-like video: %v", err)
	}

	videos, err := likeRepo.LikedVideos(ctx, fan.ID)
	if err != nil {
		t.Fatalf("liked videos: %v", err)
	}
	if len(videos) != 1 || videos[0].ID != video.ID {
		t.Fatalf("expected the liked video, got %+v", videos)
	}
}

func TestPostgresCommentRepository_PaginationNewestFirst(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	commentRepo := NewPostgresCommentRepository(testPool)

	owner := createTestUser(t, userRepo, "owner")
	video := createTestVideo(t, videoRepo, owner.ID, "discussed", true)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		comment := models.Comment{
			ID:        uuid.NewString(),
			VideoID:   video.ID,
			OwnerID:   owner.ID,
			Content:   fmt.Sprintf("comment %02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := commentRepo.Create(ctx, comment); err != nil {
			t.Fatalf("create comment %d: %v", i, err)
		}
	}

	page, err := commentRepo.ListForVideo(ctx, video.ID, 1, 10)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(page.Comments) != 10 || page.Total != 12 {
		t.Fatalf("expected 10 of 12 comments, got %d of %d", len(page.Comments), page.Total)
	}
	if page.Comments[0].Content != "comment 11" {
		t.Fatalf("expected newest comment first, got %q", page.Comments[0].Content)
	}

	second, err := commentRepo.ListForVideo(ctx, video.ID, 2, 10)
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Comments) != 2 {
		t.Fatalf("expected 2 comments on the second page, got %d", len(second.Comments))
	}
}

func TestPostgresPlaylistRepository_OrderAndUniqueness(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	playlistRepo := NewPostgresPlaylistRepository(testPool)

	owner := createTestUser(t, userRepo, "owner")
	first := createTestVideo(t, videoRepo, owner.ID, "first", true)
	second := createTestVideo(t, videoRepo, owner.ID, "second", true)

	playlist := models.Playlist{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Name:      "favorites",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := playlistRepo.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if err := playlistRepo.AddVideo(ctx, playlist.ID, first.ID); err != nil {
		t.Fatalf("add first video: %v", err)
	}
	if err := playlistRepo.AddVideo(ctx, playlist.ID, second.ID); err != nil {
		t.Fatalf("add second video: %v", err)
	}
	if err := playlistRepo.AddVideo(ctx, playlist.ID, first.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate video, got %v", err)
	}

	fetched, err := playlistRepo.FindByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("find playlist: %v", err)
	}
	if len(fetched.Videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(fetched.Videos))
	}
	if fetched.Videos[0].ID != first.ID || fetched.Videos[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %s then %s", fetched.Videos[0].ID, fetched.Videos[1].ID)
	}

	if err := playlistRepo.RemoveVideo(ctx, playlist.ID, first.ID); err != nil {
		t.Fatalf("remove video: %v", err)
	}
	if err := playlistRepo.RemoveVideo(ctx, playlist.ID, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing an absent video, got %v", err)
	}
}

func TestPostgresStatsRepository_ChannelStats(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	subRepo := NewPostgresSubscriptionRepository(testPool)
	likeRepo := NewPostgresLikeRepository(testPool)
	statsRepo := NewPostgresStatsRepository(testPool)

	owner := createTestUser(t, userRepo, "owner")
	fan := createTestUser(t, userRepo, "fan")
	other := createTestUser(t, userRepo, "other")

	first := createTestVideo(t, videoRepo, owner.ID, "first", true)
	createTestVideo(t, videoRepo, owner.ID, "second", true)

	if err := userRepo.RecordView(ctx, fan.ID, first.ID); err != nil {
		t.Fatalf("record view: %v", err)
	}
	if _, err := subRepo.Toggle(ctx, fan.ID, owner.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := subRepo.Toggle(ctx, other.ID, owner.ID); err != nil {
		t.Fatalf("subscribe other: %v", err)
	}
	if _, err := likeRepo.Toggle(ctx, fan.ID, models.LikeTargetVideo, first.ID); err != nil {
		t.Fatalf("like video: %v", err)
	}

	stats, err := statsRepo.ChannelStats(ctx, owner.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}

	want := models.ChannelStats{TotalVideos: 2, TotalViews: 1, TotalSubscribers: 2, TotalLikes: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestPostgresResetTokenRepository_SingleUseAndSweep(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	repo := NewPostgresResetTokenRepository(testPool)
	user := createTestUser(t, userRepo, "alice")

	live := ResetToken{TokenHash: "hash-live", UserID: user.ID, ExpiresAt: time.Now().UTC().Add(15 * time.Minute)}
	if err := repo.Save(ctx, live); err != nil {
		t.Fatalf("save token: %v", err)
	}

	// A newer request replaces the outstanding token for the same user.
	replacement := ResetToken{TokenHash: "hash-new", UserID: user.ID, ExpiresAt: time.Now().UTC().Add(15 * time.Minute)}
	if err := repo.Save(ctx, replacement); err != nil {
		t.Fatalf("save replacement: %v", err)
	}
	if _, err := repo.Find(ctx, "hash-live"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected the replaced token to be gone, got %v", err)
	}

	found, err := repo.Find(ctx, "hash-new")
	if err != nil {
		t.Fatalf("find replacement: %v", err)
	}
	if found.UserID != user.ID {
		t.Fatalf("expected token for %s, got %s", user.ID, found.UserID)
	}

	if err := repo.Delete(ctx, "hash-new"); err != nil {
		t.Fatalf("consume token: %v", err)
	}
	if _, err := repo.Find(ctx, "hash-new"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected consumed token to be gone, got %v", err)
	}

	expired := ResetToken{TokenHash: "hash-old", UserID: user.ID, ExpiresAt: time.Now().UTC().Add(-time.Minute)}
	if err := repo.Save(ctx, expired); err != nil {
		t.Fatalf("save expired token: %v", err)
	}
	if _, err := repo.Find(ctx, "hash-old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token must not resolve, got %v", err)
	}

	removed, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("sweep expired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one swept token, got %d", removed)
	}
}
