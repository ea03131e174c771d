// Package likes toggles likes on videos, comments and tweets and exposes the
// like-based views.
package likes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/views"
)

// Store records likes. Toggle adds the like when the liker has not liked the
// target yet and removes the existing like otherwise.
type Store interface {
	Toggle(ctx context.Context, like models.Like) (bool, error)
}

// VideoFinder, CommentFinder and TweetFinder resolve like targets.
type VideoFinder interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

type CommentFinder interface {
	FindByID(ctx context.Context, id string) (models.Comment, error)
}

type TweetFinder interface {
	FindByID(ctx context.Context, id string) (models.Tweet, error)
}

// Views builds the like-based read models.
type Views interface {
	LikedVideos(ctx context.Context, userID string) ([]views.LikedVideo, error)
	VideoLikeCount(ctx context.Context, videoID string) (int, error)
}

// Deps wires a Service.
type Deps struct {
	Likes    Store
	Videos   VideoFinder
	Comments CommentFinder
	Tweets   TweetFinder
	Views    Views
}

// ToggleResult reports the state after a toggle.
type ToggleResult struct {
	Liked bool `json:"isLiked"`
}

// Service implements the like operations.
type Service struct {
	deps Deps
	now  func() time.Time
}

// NewService returns a like service.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// WithNowFunc overrides the clock used for like timestamps.
func (s *Service) WithNowFunc(now func() time.Time) *Service {
	s.now = now
	return s
}

// Toggle likes target for the actor, or removes the like if it exists. The
// target must exist.
func (s *Service) Toggle(ctx context.Context, actor models.Actor, target models.LikeTarget) (ToggleResult, error) {
	ctx, span := logging.StartSpan(ctx, "likes.Toggle")
	defer span.End()

	if target.IsZero() || target.ID() == "" {
		return ToggleResult{}, apperr.New(apperr.ErrInvalidArgument, "like target is required")
	}
	if err := s.targetExists(ctx, target); err != nil {
		return ToggleResult{}, err
	}

	added, err := s.deps.Likes.Toggle(ctx, models.Like{
		ID:        uuid.NewString(),
		LikedBy:   actor.UserID,
		Target:    target,
		CreatedAt: s.now(),
	})
	if errors.Is(err, apperr.ErrConflict) {
		return ToggleResult{}, apperr.Wrap(apperr.ErrConflict, "like was changed by a concurrent request", err)
	}
	if err != nil {
		return ToggleResult{}, fmt.Errorf("toggle like on %s: %w", target, err)
	}

	logging.FromContext(ctx).Debug("like toggled", "target", target.String(), "liked", added)
	return ToggleResult{Liked: added}, nil
}

// LikedVideos lists the videos the actor liked, most recent like first.
func (s *Service) LikedVideos(ctx context.Context, actor models.Actor) ([]views.LikedVideo, error) {
	return s.deps.Views.LikedVideos(ctx, actor.UserID)
}

// VideoLikeCount returns the number of likes on videoID.
func (s *Service) VideoLikeCount(ctx context.Context, videoID string) (int, error) {
	return s.deps.Views.VideoLikeCount(ctx, videoID)
}

func (s *Service) targetExists(ctx context.Context, target models.LikeTarget) error {
	var err error
	switch target.Kind() {
	case models.TargetVideo:
		_, err = s.deps.Videos.FindByID(ctx, target.ID())
	case models.TargetComment:
		_, err = s.deps.Comments.FindByID(ctx, target.ID())
	case models.TargetTweet:
		_, err = s.deps.Tweets.FindByID(ctx, target.ID())
	default:
		return apperr.New(apperr.ErrInvalidArgument, "unknown like target")
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, string(target.Kind())+" not found", err)
	}
	return fmt.Errorf("find %s: %w", target.Kind(), err)
}
