package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/videocave/backend/internal/models"
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

func TestPostgresUserRepository_IdentityLifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := user
	dup.ID = uuid.NewString()
	dup.Handle = "someone-else"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if fetched.ID != user.ID || fetched.PasswordHash != user.PasswordHash || fetched.VerificationToken != "verify-1" {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}
	if fetched.WatchHistory == nil || len(fetched.WatchHistory) != 0 {
		t.Fatalf("expected empty watch history, got %#v", fetched.WatchHistory)
	}

	if err := repo.MarkEmailVerified(ctx, user.ID, "stale"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for mismatched token, got %v", err)
	}
	if err := repo.MarkEmailVerified(ctx, user.ID, "verify-1"); err != nil {
		t.Fatalf("mark verified: %v", err)
	}
	if err := repo.MarkEmailVerified(ctx, user.ID, "verify-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict verifying twice, got %v", err)
	}
	if err := repo.MarkEmailVerified(ctx, uuid.NewString(), "verify-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	avatar := models.AssetRef{URL: "https://cdn.example/a.png", PublicID: "avatars/a"}
	if err := repo.CompleteProfile(ctx, user.ID, "alice-final", avatar, nil); err != nil {
		t.Fatalf("complete profile: %v", err)
	}
	if err := repo.CompleteProfile(ctx, user.ID, "alice-again", avatar, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict completing twice, got %v", err)
	}

	fetched, err = repo.FindByHandle(ctx, "alice-final")
	if err != nil {
		t.Fatalf("find by handle: %v", err)
	}
	if !fetched.EmailVerified || !fetched.ProfileCompleted || fetched.AvatarURL != avatar.URL || fetched.VerificationToken != "" {
		t.Fatalf("unexpected profile state: %+v", fetched)
	}

	other := createTestUser(t, repo, "bob")
	if err := repo.CompleteProfile(ctx, other.ID, "alice-final", avatar, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for taken handle, got %v", err)
	}

	if _, err := repo.FindByID(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}

	users, err := repo.FindByIDs(ctx, []string{user.ID, other.ID, uuid.NewString()})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected two users, got %d", len(users))
	}
}

func TestPostgresUserRepository_RefreshTokenRotation(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "carol")

	if err := repo.SetRefreshToken(ctx, user.ID, "r1"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}
	if err := repo.RotateRefreshToken(ctx, user.ID, "r1", "r2"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := repo.RotateRefreshToken(ctx, user.ID, "r1", "r3"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict replaying a rotated token, got %v", err)
	}
	if err := repo.ClearRefreshToken(ctx, user.ID); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if fetched.RefreshToken != "" {
		t.Fatalf("expected cleared refresh token, got %q", fetched.RefreshToken)
	}

	if err := repo.UpdatePassword(ctx, uuid.NewString(), "hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestPostgresUserRepository_WatchHistory(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	viewer := createTestUser(t, users, "viewer")
	v1 := createTestVideo(t, viewer.ID, "one", true)
	v2 := createTestVideo(t, viewer.ID, "two", true)

	for _, id := range []string{v1.ID, v2.ID, v1.ID} {
		if err := users.RecordView(ctx, viewer.ID, id); err != nil {
			t.Fatalf("record view: %v", err)
		}
	}

	fetched, err := users.FindByID(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("find viewer: %v", err)
	}
	if strings.Join(fetched.WatchHistory, ",") != v2.ID+","+v1.ID {
		t.Fatalf("expected re-watched video to move to the end, got %v", fetched.WatchHistory)
	}

	if err := users.RemoveFromHistory(ctx, viewer.ID, v2.ID); err != nil {
		t.Fatalf("remove from history: %v", err)
	}
	if err := users.RemoveFromHistory(ctx, viewer.ID, "not-a-uuid"); err != nil {
		t.Fatalf("expected malformed video id to be a no-op, got %v", err)
	}
	if err := users.ClearHistory(ctx, viewer.ID); err != nil {
		t.Fatalf("clear history: %v", err)
	}
	fetched, err = users.FindByID(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("find viewer: %v", err)
	}
	if len(fetched.WatchHistory) != 0 {
		t.Fatalf("expected empty history, got %v", fetched.WatchHistory)
	}
}

func TestPostgresCommentRepository_PagingAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	author := createTestUser(t, users, "author")
	video := createTestVideo(t, author.ID, "clip", true)

	repo := NewPostgresCommentRepository(testPool)
	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i := 0; i < 3; i++ {
		c := models.Comment{
			ID:        uuid.NewString(),
			VideoID:   video.ID,
			OwnerID:   author.ID,
			Content:   fmt.Sprintf("comment %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("create comment: %v", err)
		}
		ids = append(ids, c.ID)
	}

	missingVideo := models.Comment{ID: uuid.NewString(), VideoID: uuid.NewString(), OwnerID: author.ID, Content: "x", CreatedAt: base, UpdatedAt: base}
	if err := repo.Create(ctx, missingVideo); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}

	page, total, err := repo.ListByVideo(ctx, video.ID, 2, 0)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if total != 3 || len(page) != 2 || page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Fatalf("unexpected first page: total=%d %+v", total, page)
	}

	updated, err := repo.Update(ctx, ids[0], "edited")
	if err != nil {
		t.Fatalf("update comment: %v", err)
	}
	if updated.Content != "edited" {
		t.Fatalf("unexpected content %q", updated.Content)
	}

	likes := NewPostgresLikeRepository(testPool)
	if _, err := likes.Toggle(ctx, models.Like{ID: uuid.NewString(), LikedBy: author.ID, Target: models.CommentTarget(ids[0]), CreatedAt: base}); err != nil {
		t.Fatalf("like comment: %v", err)
	}

	if err := repo.Delete(ctx, ids[0]); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if err := repo.Delete(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
	remaining, err := likes.ListByTarget(ctx, models.CommentTarget(ids[0]))
	if err != nil {
		t.Fatalf("list likes: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected likes removed with the comment, got %v", remaining)
	}
}

func TestPostgresPlaylistRepository_Membership(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, users, "owner")
	v1 := createTestVideo(t, owner.ID, "one", true)
	v2 := createTestVideo(t, owner.ID, "two", true)

	repo := NewPostgresPlaylistRepository(testPool)
	now := time.Now().UTC().Truncate(time.Millisecond)
	playlist := models.Playlist{ID: uuid.NewString(), OwnerID: owner.ID, Name: "Faves", Description: "best", CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if _, err := repo.AddVideo(ctx, playlist.ID, v1.ID); err != nil {
		t.Fatalf("add first video: %v", err)
	}
	got, err := repo.AddVideo(ctx, playlist.ID, v2.ID)
	if err != nil {
		t.Fatalf("add second video: %v", err)
	}
	if strings.Join(got.VideoIDs, ",") != v1.ID+","+v2.ID {
		t.Fatalf("expected insertion order, got %v", got.VideoIDs)
	}

	if _, err := repo.AddVideo(ctx, playlist.ID, v1.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict adding duplicate, got %v", err)
	}
	if _, err := repo.AddVideo(ctx, uuid.NewString(), v1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown playlist, got %v", err)
	}

	got, err = repo.RemoveVideo(ctx, playlist.ID, v1.ID)
	if err != nil {
		t.Fatalf("remove video: %v", err)
	}
	if len(got.VideoIDs) != 1 || got.VideoIDs[0] != v2.ID {
		t.Fatalf("unexpected videos after removal: %v", got.VideoIDs)
	}
	if _, err := repo.RemoveVideo(ctx, playlist.ID, v1.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict removing absent video, got %v", err)
	}

	renamed, err := repo.Update(ctx, playlist.ID, "Renamed", "")
	if err != nil {
		t.Fatalf("update playlist: %v", err)
	}
	if renamed.Name != "Renamed" || renamed.Description != "best" {
		t.Fatalf("expected partial update, got %+v", renamed)
	}

	owned, err := repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list playlists: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != playlist.ID {
		t.Fatalf("unexpected playlists: %+v", owned)
	}

	if err := repo.Delete(ctx, playlist.ID); err != nil {
		t.Fatalf("delete playlist: %v", err)
	}
	if _, err := repo.FindByID(ctx, playlist.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresSocialRepositories(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	fan := createTestUser(t, users, "fan")
	channel := createTestUser(t, users, "channel")
	video := createTestVideo(t, channel.ID, "launch", true)

	subs := NewPostgresSubscriptionRepository(testPool)
	now := time.Now().UTC().Truncate(time.Millisecond)
	sub := models.Subscription{ID: uuid.NewString(), SubscriberID: fan.ID, ChannelID: channel.ID, CreatedAt: now}
	if err := subs.Create(ctx, sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	again := sub
	again.ID = uuid.NewString()
	if err := subs.Create(ctx, again); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict subscribing twice, got %v", err)
	}

	byChannel, err := subs.ListByChannel(ctx, channel.ID)
	if err != nil {
		t.Fatalf("list by channel: %v", err)
	}
	bySubscriber, err := subs.ListBySubscriber(ctx, fan.ID)
	if err != nil {
		t.Fatalf("list by subscriber: %v", err)
	}
	if len(byChannel) != 1 || len(bySubscriber) != 1 || byChannel[0].ID != sub.ID {
		t.Fatalf("unexpected subscriptions: %+v %+v", byChannel, bySubscriber)
	}

	likes := NewPostgresLikeRepository(testPool)
	like := models.Like{ID: uuid.NewString(), LikedBy: fan.ID, Target: models.VideoTarget(video.ID), CreatedAt: now}

	added, err := likes.Toggle(ctx, like)
	if err != nil || !added {
		t.Fatalf("expected like to be added, got added=%v err=%v", added, err)
	}
	onTarget, err := likes.ListByTarget(ctx, models.VideoTarget(video.ID))
	if err != nil {
		t.Fatalf("list by target: %v", err)
	}
	if len(onTarget) != 1 || onTarget[0].Target != like.Target || onTarget[0].LikedBy != fan.ID {
		t.Fatalf("unexpected likes on target: %+v", onTarget)
	}

	like.ID = uuid.NewString()
	added, err = likes.Toggle(ctx, like)
	if err != nil || added {
		t.Fatalf("expected like to be removed, got added=%v err=%v", added, err)
	}
	byUser, err := likes.ListByUser(ctx, fan.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 0 {
		t.Fatalf("expected no likes after toggling off, got %+v", byUser)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
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

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE likes, playlists, subscriptions, comments, tweets, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, handle string) models.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := models.User{
		ID:                uuid.NewString(),
		Handle:            handle,
		Email:             handle + "@example.com",
		FullName:          strings.ToUpper(handle[:1]) + handle[1:],
		PasswordHash:      "hash-" + handle,
		VerificationToken: "verify-1",
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}

	return user
}

func createTestVideo(t *testing.T, ownerID, title string, published bool) models.Video {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		VideoURL:    "https://cdn.example/" + title + ".mp4",
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := NewPostgresVideoRepository(testPool).Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}

	return video
}
