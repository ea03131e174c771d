package views

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/memstore"
	"github.com/videocave/backend/internal/models"
)

type fixture struct {
	store     *memstore.Store
	assembler *Assembler
	base      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	return &fixture{
		store: store,
		assembler: NewAssembler(Sources{
			Users:         store.Users(),
			Videos:        store.Videos(),
			Playlists:     store.Playlists(),
			Subscriptions: store.Subscriptions(),
			Likes:         store.Likes(),
		}),
		base: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) user(t *testing.T, id, handle string) models.User {
	t.Helper()
	user := models.User{
		ID:        id,
		Handle:    handle,
		Email:     handle + "@example.com",
		FullName:  "User " + handle,
		AvatarURL: "https://cdn.example.com/" + handle + ".png",
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) video(t *testing.T, id, ownerID string) models.Video {
	t.Helper()
	video := models.Video{
		ID:          id,
		OwnerID:     ownerID,
		Title:       "Video " + id,
		IsPublished: true,
		CreatedAt:   f.base,
	}
	require.NoError(t, f.store.Videos().Create(context.Background(), video))
	return video
}

func ids(summaries []VideoSummary) []string {
	return Project(summaries, func(v VideoSummary) string { return v.ID })
}

func TestChannelProfileCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	channel := f.user(t, "u-channel", "channel")
	viewer := f.user(t, "u-viewer", "viewer")
	other := f.user(t, "u-other", "other")
	followed := f.user(t, "u-followed", "followed")
	f.user(t, "u-lonely", "lonely")

	subs := f.store.Subscriptions()
	require.NoError(t, subs.Create(ctx, models.Subscription{ID: "s1", SubscriberID: viewer.ID, ChannelID: channel.ID}))
	require.NoError(t, subs.Create(ctx, models.Subscription{ID: "s2", SubscriberID: other.ID, ChannelID: channel.ID}))
	require.NoError(t, subs.Create(ctx, models.Subscription{ID: "s3", SubscriberID: channel.ID, ChannelID: followed.ID}))

	profile, err := f.assembler.ChannelProfile(ctx, models.Actor{UserID: viewer.ID}, "Channel")
	require.NoError(t, err)
	require.Equal(t, channel.ID, profile.ID)
	require.Equal(t, 2, profile.SubscriberCount)
	require.Equal(t, 1, profile.SubscribedToCount)
	require.True(t, profile.IsSubscribed)

	profile, err = f.assembler.ChannelProfile(ctx, models.Actor{UserID: followed.ID}, "channel")
	require.NoError(t, err)
	require.False(t, profile.IsSubscribed)

	fan, err := f.assembler.ChannelProfile(ctx, models.Actor{UserID: viewer.ID}, "other")
	require.NoError(t, err)
	require.Zero(t, fan.SubscriberCount)
	require.Equal(t, 1, fan.SubscribedToCount)
	require.False(t, fan.IsSubscribed)

	lonely, err := f.assembler.ChannelProfile(ctx, models.Actor{UserID: viewer.ID}, "lonely")
	require.NoError(t, err)
	require.Zero(t, lonely.SubscriberCount)
	require.Zero(t, lonely.SubscribedToCount)
}

func TestChannelProfileUnknownHandle(t *testing.T) {
	f := newFixture(t)

	_, err := f.assembler.ChannelProfile(context.Background(), models.Actor{UserID: "x"}, "ghost")
	require.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
}

func TestPlaylistDetailPreservesStoredOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	owner := f.user(t, "u-owner", "owner")
	creator := f.user(t, "u-creator", "creator")
	for i := 0; i < 6; i++ {
		f.video(t, fmt.Sprintf("v%d", i), creator.ID)
	}

	order := []string{"v4", "v1", "v5", "v0", "v3"}
	require.NoError(t, f.store.Playlists().Create(ctx, models.Playlist{
		ID:       "p1",
		OwnerID:  owner.ID,
		Name:     "Mix",
		VideoIDs: append(order, "v-deleted"),
	}))

	// Map iteration makes batch lookups unordered; repeat to catch accidental reliance on it.
	for i := 0; i < 10; i++ {
		detail, err := f.assembler.PlaylistDetail(ctx, "p1")
		require.NoError(t, err)
		require.Equal(t, order, ids(detail.Videos))
		require.Equal(t, len(order), detail.VideoCount)
		require.NotNil(t, detail.Videos[0].Owner)
		require.Equal(t, creator.Handle, detail.Videos[0].Owner.Handle)
	}
}

func TestPlaylistDetailEmptyIsEmptyList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.user(t, "u-owner", "owner")

	require.NoError(t, f.store.Playlists().Create(ctx, models.Playlist{ID: "p-empty", OwnerID: owner.ID, Name: "Empty"}))

	detail, err := f.assembler.PlaylistDetail(ctx, "p-empty")
	require.NoError(t, err)
	require.NotNil(t, detail.Videos)
	require.Empty(t, detail.Videos)

	_, err = f.assembler.PlaylistDetail(ctx, "p-missing")
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestWatchHistoryFollowsRecordedOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	viewer := f.user(t, "u-viewer", "viewer")
	creator := f.user(t, "u-creator", "creator")
	for _, id := range []string{"a", "b", "c", "d"} {
		f.video(t, id, creator.ID)
	}

	users := f.store.Users()
	for _, id := range []string{"c", "a", "d", "b", "a"} {
		require.NoError(t, users.RecordView(ctx, viewer.ID, id))
	}

	history, err := f.assembler.WatchHistory(ctx, viewer.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "d", "b", "a"}, ids(history))
}

func TestLikedVideosMostRecentFirstAndVideoOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	viewer := f.user(t, "u-viewer", "viewer")
	creator := f.user(t, "u-creator", "creator")
	f.video(t, "v1", creator.ID)
	f.video(t, "v2", creator.ID)

	likes := f.store.Likes()
	toggles := []models.Like{
		{ID: "l1", LikedBy: viewer.ID, Target: models.VideoTarget("v1"), CreatedAt: f.base},
		{ID: "l2", LikedBy: viewer.ID, Target: models.CommentTarget("c1"), CreatedAt: f.base.Add(time.Minute)},
		{ID: "l3", LikedBy: viewer.ID, Target: models.VideoTarget("v2"), CreatedAt: f.base.Add(2 * time.Minute)},
		{ID: "l4", LikedBy: viewer.ID, Target: models.TweetTarget("t1"), CreatedAt: f.base.Add(3 * time.Minute)},
	}
	for _, like := range toggles {
		added, err := likes.Toggle(ctx, like)
		require.NoError(t, err)
		require.True(t, added)
	}

	liked, err := f.assembler.LikedVideos(ctx, viewer.ID)
	require.NoError(t, err)
	require.Len(t, liked, 2)
	require.Equal(t, "v2", liked[0].Video.ID)
	require.Equal(t, "v1", liked[1].Video.ID)
	require.Equal(t, creator.Handle, liked[0].Video.Owner.Handle)

	none, err := f.assembler.LikedVideos(ctx, creator.ID)
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestVideoLikeCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	creator := f.user(t, "u-creator", "creator")
	f.video(t, "v1", creator.ID)

	count, err := f.assembler.VideoLikeCount(ctx, "v1")
	require.NoError(t, err)
	require.Zero(t, count)

	for _, id := range []string{"u1", "u2", "u3"} {
		_, err := f.store.Likes().Toggle(ctx, models.Like{ID: "l-" + id, LikedBy: id, Target: models.VideoTarget("v1")})
		require.NoError(t, err)
	}

	count, err = f.assembler.VideoLikeCount(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	_, err = f.assembler.VideoLikeCount(ctx, "missing")
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPlaylistsContainingVideoSortsMembersFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	owner := f.user(t, "u-owner", "owner")
	f.video(t, "v1", owner.ID)

	playlists := f.store.Playlists()
	require.NoError(t, playlists.Create(ctx, models.Playlist{ID: "p-a", OwnerID: owner.ID, Name: "A", UpdatedAt: f.base.Add(3 * time.Hour)}))
	require.NoError(t, playlists.Create(ctx, models.Playlist{ID: "p-b", OwnerID: owner.ID, Name: "B", VideoIDs: []string{"v1"}, UpdatedAt: f.base.Add(2 * time.Hour)}))
	require.NoError(t, playlists.Create(ctx, models.Playlist{ID: "p-c", OwnerID: owner.ID, Name: "C", UpdatedAt: f.base.Add(time.Hour)}))

	memberships, err := f.assembler.PlaylistsContainingVideo(ctx, models.Actor{UserID: owner.ID}, "v1")
	require.NoError(t, err)
	require.Equal(t, []PlaylistMembership{
		{ID: "p-b", Name: "B", VideoCount: 1, ContainsVideo: true},
		{ID: "p-a", Name: "A"},
		{ID: "p-c", Name: "C"},
	}, memberships)

	names, err := f.assembler.PlaylistNames(ctx, owner.ID)
	require.NoError(t, err)
	require.Equal(t, []PlaylistName{{ID: "p-a", Name: "A"}, {ID: "p-b", Name: "B"}, {ID: "p-c", Name: "C"}}, names)

	all, err := f.assembler.UserPlaylists(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"v1"}, ids(all[1].Videos))
	require.NotNil(t, all[0].Videos)
}
