// Package views assembles read models that join several entities.
//
// Every view is built from batch lookups followed by the pipeline steps in
// pipeline.go. Order is never assumed from the store: whenever a stored
// reference sequence defines the order, the assembler restores it explicitly.
package views

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/models"
)

// UserSource reads identities.
type UserSource interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByHandle(ctx context.Context, handle string) (models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// VideoSource reads videos. FindByIDs returns matches in no particular order.
type VideoSource interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Video, error)
}

// PlaylistSource reads playlists.
type PlaylistSource interface {
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
}

// SubscriptionSource reads subscriptions.
type SubscriptionSource interface {
	ListByChannel(ctx context.Context, channelID string) ([]models.Subscription, error)
	ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}

// LikeSource reads likes. ListByUser returns likes in the order they were recorded.
type LikeSource interface {
	ListByUser(ctx context.Context, userID string) ([]models.Like, error)
	ListByTarget(ctx context.Context, target models.LikeTarget) ([]models.Like, error)
}

// Sources groups the stores the assembler reads from.
type Sources struct {
	Users         UserSource
	Videos        VideoSource
	Playlists     PlaylistSource
	Subscriptions SubscriptionSource
	Likes         LikeSource
}

// Assembler builds read models. It holds no state beyond its sources and is
// safe for concurrent use.
type Assembler struct {
	src Sources
}

// NewAssembler returns an assembler reading from src.
func NewAssembler(src Sources) *Assembler {
	return &Assembler{src: src}
}

// ChannelProfile returns the channel with the given handle as seen by viewer.
func (a *Assembler) ChannelProfile(ctx context.Context, viewer models.Actor, handle string) (ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "views.ChannelProfile")
	defer span.End()

	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return ChannelProfile{}, apperr.New(apperr.ErrInvalidArgument, "handle is required")
	}

	channel, err := a.src.Users.FindByHandle(ctx, handle)
	if err != nil {
		return ChannelProfile{}, notFound(err, "channel does not exist")
	}

	subscribers, err := a.src.Subscriptions.ListByChannel(ctx, channel.ID)
	if err != nil {
		return ChannelProfile{}, fmt.Errorf("list subscribers: %w", err)
	}
	subscribedTo, err := a.src.Subscriptions.ListBySubscriber(ctx, channel.ID)
	if err != nil {
		return ChannelProfile{}, fmt.Errorf("list subscriptions: %w", err)
	}

	viewerSubs := Filter(subscribers, func(s models.Subscription) bool {
		return viewer.UserID != "" && s.SubscriberID == viewer.UserID
	})

	return ChannelProfile{
		ID:                channel.ID,
		Handle:            channel.Handle,
		FullName:          channel.FullName,
		Email:             channel.Email,
		AvatarURL:         channel.AvatarURL,
		CoverURL:          channel.CoverURL,
		SubscriberCount:   len(subscribers),
		SubscribedToCount: len(subscribedTo),
		IsSubscribed:      len(viewerSubs) > 0,
	}, nil
}

// PlaylistDetail returns the playlist with its videos in stored order, each
// carrying its owner's public projection. References to videos that no longer
// exist are dropped.
func (a *Assembler) PlaylistDetail(ctx context.Context, playlistID string) (PlaylistDetail, error) {
	ctx, span := logging.StartSpan(ctx, "views.PlaylistDetail")
	defer span.End()

	playlist, err := a.src.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return PlaylistDetail{}, notFound(err, "playlist not found")
	}

	details, err := a.playlistDetails(ctx, []models.Playlist{playlist})
	if err != nil {
		return PlaylistDetail{}, err
	}
	return details[0], nil
}

// UserPlaylists returns every playlist of ownerID, most recently updated first.
func (a *Assembler) UserPlaylists(ctx context.Context, ownerID string) ([]PlaylistDetail, error) {
	ctx, span := logging.StartSpan(ctx, "views.UserPlaylists")
	defer span.End()

	playlists, err := a.src.Playlists.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	playlists = SortStableBy(playlists, func(x, y models.Playlist) bool {
		return x.UpdatedAt.After(y.UpdatedAt)
	})
	return a.playlistDetails(ctx, playlists)
}

// PlaylistNames returns the id and name of every playlist of ownerID.
func (a *Assembler) PlaylistNames(ctx context.Context, ownerID string) ([]PlaylistName, error) {
	playlists, err := a.src.Playlists.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	return Project(playlists, func(p models.Playlist) PlaylistName {
		return PlaylistName{ID: p.ID, Name: p.Name}
	}), nil
}

// PlaylistsContainingVideo lists the actor's playlists flagged with whether
// each contains videoID. Playlists containing the video come first; the store
// order is kept otherwise.
func (a *Assembler) PlaylistsContainingVideo(ctx context.Context, actor models.Actor, videoID string) ([]PlaylistMembership, error) {
	ctx, span := logging.StartSpan(ctx, "views.PlaylistsContainingVideo")
	defer span.End()

	if _, err := a.src.Videos.FindByID(ctx, videoID); err != nil {
		return nil, notFound(err, "video not found")
	}

	playlists, err := a.src.Playlists.ListByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}

	memberships := Project(playlists, func(p models.Playlist) PlaylistMembership {
		return PlaylistMembership{
			ID:            p.ID,
			Name:          p.Name,
			VideoCount:    len(p.VideoIDs),
			ContainsVideo: containsID(p.VideoIDs, videoID),
		}
	})
	return SortStableBy(memberships, func(x, y PlaylistMembership) bool {
		return x.ContainsVideo && !y.ContainsVideo
	}), nil
}

// WatchHistory returns the videos in userID's watch history in the order they
// were recorded, oldest first.
func (a *Assembler) WatchHistory(ctx context.Context, userID string) ([]VideoSummary, error) {
	ctx, span := logging.StartSpan(ctx, "views.WatchHistory")
	defer span.End()

	user, err := a.src.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}

	videos, err := a.videosInOrder(ctx, user.WatchHistory)
	if err != nil {
		return nil, err
	}
	return a.summarize(ctx, videos)
}

// LikedVideos returns the videos userID liked, most recent like first. Likes
// of comments and tweets are ignored.
func (a *Assembler) LikedVideos(ctx context.Context, userID string) ([]LikedVideo, error) {
	ctx, span := logging.StartSpan(ctx, "views.LikedVideos")
	defer span.End()

	likes, err := a.src.Likes.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}

	videoLikes := Filter(likes, func(l models.Like) bool {
		return l.Target.Kind() == models.TargetVideo
	})
	videoLikes = SortStableBy(videoLikes, func(x, y models.Like) bool {
		return x.CreatedAt.Before(y.CreatedAt)
	})

	ids := Project(videoLikes, func(l models.Like) string { return l.Target.ID() })
	videos, err := a.videosInOrder(ctx, ids)
	if err != nil {
		return nil, err
	}
	summaries, err := a.summarize(ctx, videos)
	if err != nil {
		return nil, err
	}

	byID := IndexBy(summaries, func(v VideoSummary) string { return v.ID })
	liked := make([]LikedVideo, 0, len(videoLikes))
	for _, like := range videoLikes {
		if summary, ok := byID[like.Target.ID()]; ok {
			liked = append(liked, LikedVideo{LikedAt: like.CreatedAt, Video: summary})
		}
	}
	return Reverse(liked), nil
}

// VideoLikeCount returns how many likes videoID has. A video without likes
// has a count of zero.
func (a *Assembler) VideoLikeCount(ctx context.Context, videoID string) (int, error) {
	if _, err := a.src.Videos.FindByID(ctx, videoID); err != nil {
		return 0, notFound(err, "video not found")
	}
	likes, err := a.src.Likes.ListByTarget(ctx, models.VideoTarget(videoID))
	if err != nil {
		return 0, fmt.Errorf("list likes: %w", err)
	}
	return len(likes), nil
}

func (a *Assembler) playlistDetails(ctx context.Context, playlists []models.Playlist) ([]PlaylistDetail, error) {
	var ids []string
	for _, p := range playlists {
		ids = append(ids, p.VideoIDs...)
	}

	videos, err := a.src.Videos.FindByIDs(ctx, Unique(ids))
	if err != nil {
		return nil, fmt.Errorf("load playlist videos: %w", err)
	}
	summaries, err := a.summarize(ctx, videos)
	if err != nil {
		return nil, err
	}
	index := IndexBy(summaries, func(v VideoSummary) string { return v.ID })

	return Project(playlists, func(p models.Playlist) PlaylistDetail {
		ordered := JoinOrdered(p.VideoIDs, index)
		return PlaylistDetail{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			OwnerID:     p.OwnerID,
			Videos:      ordered,
			VideoCount:  len(ordered),
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
	}), nil
}

// videosInOrder loads ids and returns the existing videos in the order of ids.
func (a *Assembler) videosInOrder(ctx context.Context, ids []string) ([]models.Video, error) {
	if len(ids) == 0 {
		return []models.Video{}, nil
	}
	videos, err := a.src.Videos.FindByIDs(ctx, Unique(ids))
	if err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}
	index := IndexBy(videos, func(v models.Video) string { return v.ID })
	return JoinOrdered(ids, index), nil
}

// summarize attaches owner projections to videos, keeping their order.
func (a *Assembler) summarize(ctx context.Context, videos []models.Video) ([]VideoSummary, error) {
	ownerIDs := Unique(Project(videos, func(v models.Video) string { return v.OwnerID }))
	owners := map[string]models.User{}
	if len(ownerIDs) > 0 {
		users, err := a.src.Users.FindByIDs(ctx, ownerIDs)
		if err != nil {
			return nil, fmt.Errorf("load video owners: %w", err)
		}
		owners = IndexBy(users, func(u models.User) string { return u.ID })
	}
	return Project(videos, func(v models.Video) VideoSummary {
		return videoSummary(v, owners)
	}), nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func notFound(err error, msg string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, msg, err)
	}
	return err
}
