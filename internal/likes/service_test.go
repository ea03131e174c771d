package likes

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
	"github.com/videocave/backend/internal/views"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	require.NoError(t, store.Users().Create(ctx, models.User{ID: "u-creator", Handle: "creator", Email: "creator@example.com"}))
	require.NoError(t, store.Users().Create(ctx, models.User{ID: "u-viewer", Handle: "viewer", Email: "viewer@example.com"}))
	require.NoError(t, store.Videos().Create(ctx, models.Video{ID: "v1", OwnerID: "u-creator", Title: "First", IsPublished: true}))
	require.NoError(t, store.Videos().Create(ctx, models.Video{ID: "v2", OwnerID: "u-creator", Title: "Second", IsPublished: true}))
	require.NoError(t, store.Comments().Create(ctx, models.Comment{ID: "c1", VideoID: "v1", OwnerID: "u-viewer", Content: "nice"}))
	require.NoError(t, store.Tweets().Create(ctx, models.Tweet{ID: "t1", OwnerID: "u-creator", Content: "hello"}))

	assembler := views.NewAssembler(views.Sources{
		Users:         store.Users(),
		Videos:        store.Videos(),
		Playlists:     store.Playlists(),
		Subscriptions: store.Subscriptions(),
		Likes:         store.Likes(),
	})

	return NewService(Deps{
		Likes:    store.Likes(),
		Videos:   store.Videos(),
		Comments: store.Comments(),
		Tweets:   store.Tweets(),
		Views:    assembler,
	}), store
}

func TestToggleAddsThenRemoves(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	actor := models.Actor{UserID: "u-viewer"}

	for _, target := range []models.LikeTarget{
		models.VideoTarget("v1"),
		models.CommentTarget("c1"),
		models.TweetTarget("t1"),
	} {
		t.Run(string(target.Kind()), func(t *testing.T) {
			res, err := svc.Toggle(ctx, actor, target)
			require.NoError(t, err)
			require.True(t, res.Liked)

			res, err = svc.Toggle(ctx, actor, target)
			require.NoError(t, err)
			require.False(t, res.Liked)
		})
	}
}

func TestToggleMissingTarget(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	actor := models.Actor{UserID: "u-viewer"}

	tests := []struct {
		name   string
		target models.LikeTarget
		want   error
	}{
		{"video", models.VideoTarget("ghost"), apperr.ErrNotFound},
		{"comment", models.CommentTarget("ghost"), apperr.ErrNotFound},
		{"tweet", models.TweetTarget("ghost"), apperr.ErrNotFound},
		{"zero", models.LikeTarget{}, apperr.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Toggle(ctx, actor, tt.target)
			require.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	likes, err := store.Likes().ListByUser(ctx, actor.UserID)
	require.NoError(t, err)
	require.Empty(t, likes)
}

func TestLikedVideosAndCount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.WithNowFunc(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	viewer := models.Actor{UserID: "u-viewer"}
	creator := models.Actor{UserID: "u-creator"}

	for _, step := range []struct {
		actor  models.Actor
		target models.LikeTarget
	}{
		{viewer, models.VideoTarget("v1")},
		{viewer, models.CommentTarget("c1")},
		{viewer, models.VideoTarget("v2")},
		{creator, models.VideoTarget("v1")},
	} {
		_, err := svc.Toggle(ctx, step.actor, step.target)
		require.NoError(t, err)
	}

	liked, err := svc.LikedVideos(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, liked, 2)
	require.Equal(t, "v2", liked[0].Video.ID)
	require.Equal(t, "v1", liked[1].Video.ID)
	require.True(t, liked[0].LikedAt.After(liked[1].LikedAt))

	count, err := svc.VideoLikeCount(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = svc.Toggle(ctx, creator, models.VideoTarget("v1"))
	require.NoError(t, err)
	count, err = svc.VideoLikeCount(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

type racingStore struct{}

func (racingStore) Toggle(context.Context, models.Like) (bool, error) {
	return false, fmt.Errorf("record %w", apperr.ErrConflict)
}

func TestToggleLostRaceIsConflict(t *testing.T) {
	svc, _ := newService(t)
	svc.deps.Likes = racingStore{}

	_, err := svc.Toggle(context.Background(), models.Actor{UserID: "u-viewer"}, models.VideoTarget("v1"))
	require.True(t, errors.Is(err, apperr.ErrConflict), "got %v", err)
	require.Equal(t, 409, apperr.HTTPStatus(err))
}
