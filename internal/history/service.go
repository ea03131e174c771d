// Package history maintains each identity's watch history.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/views"
)

// Store mutates the stored history. RecordView moves an existing entry to the
// end of the list.
type Store interface {
	RecordView(ctx context.Context, userID, videoID string) error
	RemoveFromHistory(ctx context.Context, userID, videoID string) error
	ClearHistory(ctx context.Context, userID string) error
}

// VideoFinder resolves the video being recorded.
type VideoFinder interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// Views builds the history read model in stored order, oldest first.
type Views interface {
	WatchHistory(ctx context.Context, userID string) ([]views.VideoSummary, error)
}

// Service implements the watch history operations for the acting identity.
type Service struct {
	store  Store
	videos VideoFinder
	views  Views
}

// NewService returns a history service.
func NewService(store Store, videos VideoFinder, v Views) *Service {
	return &Service{store: store, videos: videos, views: v}
}

// List returns the actor's history, most recently watched first.
func (s *Service) List(ctx context.Context, actor models.Actor) ([]views.VideoSummary, error) {
	ctx, span := logging.StartSpan(ctx, "history.List")
	defer span.End()

	watched, err := s.views.WatchHistory(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return views.Reverse(watched), nil
}

// Record notes that the actor watched videoID.
func (s *Service) Record(ctx context.Context, actor models.Actor, videoID string) error {
	if _, err := s.videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, "video not found", err)
		}
		return fmt.Errorf("find video: %w", err)
	}
	if err := s.store.RecordView(ctx, actor.UserID, videoID); err != nil {
		return userError(err, "record view")
	}
	return nil
}

// Remove deletes videoID from the actor's history. Removing an entry that is
// not present succeeds.
func (s *Service) Remove(ctx context.Context, actor models.Actor, videoID string) error {
	if videoID == "" {
		return apperr.New(apperr.ErrInvalidArgument, "video id is required")
	}
	if err := s.store.RemoveFromHistory(ctx, actor.UserID, videoID); err != nil {
		return userError(err, "remove from history")
	}
	return nil
}

// Clear empties the actor's history.
func (s *Service) Clear(ctx context.Context, actor models.Actor) error {
	if err := s.store.ClearHistory(ctx, actor.UserID); err != nil {
		return userError(err, "clear history")
	}
	logging.FromContext(ctx).Info("watch history cleared", "userId", actor.UserID)
	return nil
}

func userError(err error, op string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, "user not found", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
