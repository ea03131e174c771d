// Package playlists manages user playlists and their ordered video lists.
package playlists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/ownership"
	"github.com/videocave/backend/internal/views"
)

// Store persists playlists. AddVideo fails with an apperr.ErrConflict match
// when the video is already present and RemoveVideo when it is absent.
type Store interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	Update(ctx context.Context, id, name, description string) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, id, videoID string) (models.Playlist, error)
	RemoveVideo(ctx context.Context, id, videoID string) (models.Playlist, error)
}

// VideoFinder resolves videos being added to a playlist.
type VideoFinder interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// Views builds the playlist read models.
type Views interface {
	PlaylistDetail(ctx context.Context, playlistID string) (views.PlaylistDetail, error)
	UserPlaylists(ctx context.Context, ownerID string) ([]views.PlaylistDetail, error)
	PlaylistNames(ctx context.Context, ownerID string) ([]views.PlaylistName, error)
	PlaylistsContainingVideo(ctx context.Context, actor models.Actor, videoID string) ([]views.PlaylistMembership, error)
}

// Input carries the editable playlist fields.
type Input struct {
	Name        string
	Description string
}

// ToggleResult reports the playlist after a toggle and whether the video was
// added or removed.
type ToggleResult struct {
	Playlist models.Playlist `json:"playlist"`
	Added    bool            `json:"added"`
}

// Service implements the playlist operations. Every mutation and the detail
// view are restricted to the playlist owner.
type Service struct {
	store  Store
	videos VideoFinder
	views  Views
	now    func() time.Time
}

// NewService returns a playlist service.
func NewService(store Store, videos VideoFinder, v Views) *Service {
	return &Service{
		store:  store,
		videos: videos,
		views:  v,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the clock used for creation timestamps.
func (s *Service) WithNowFunc(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create makes an empty playlist owned by the actor.
func (s *Service) Create(ctx context.Context, actor models.Actor, in Input) (models.Playlist, error) {
	ctx, span := logging.StartSpan(ctx, "playlists.Create")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" || description == "" {
		return models.Playlist{}, apperr.New(apperr.ErrInvalidArgument, "name and description are required")
	}

	now := s.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     actor.UserID,
		Name:        name,
		Description: description,
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, playlist); err != nil {
		return models.Playlist{}, fmt.Errorf("create playlist: %w", err)
	}
	return playlist, nil
}

// Detail returns the playlist with its videos in stored order.
func (s *Service) Detail(ctx context.Context, actor models.Actor, playlistID string) (views.PlaylistDetail, error) {
	if _, err := s.owned(ctx, actor, playlistID, "you are not allowed to view this playlist"); err != nil {
		return views.PlaylistDetail{}, err
	}
	return s.views.PlaylistDetail(ctx, playlistID)
}

// Update changes the name and/or description.
func (s *Service) Update(ctx context.Context, actor models.Actor, playlistID string, in Input) (models.Playlist, error) {
	ctx, span := logging.StartSpan(ctx, "playlists.Update")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" && description == "" {
		return models.Playlist{}, apperr.New(apperr.ErrInvalidArgument, "name or description is required")
	}
	if _, err := s.owned(ctx, actor, playlistID, "you are not allowed to edit this playlist"); err != nil {
		return models.Playlist{}, err
	}

	playlist, err := s.store.Update(ctx, playlistID, name, description)
	if err != nil {
		return models.Playlist{}, storeError(err, "update playlist")
	}
	return playlist, nil
}

// Delete removes the playlist.
func (s *Service) Delete(ctx context.Context, actor models.Actor, playlistID string) error {
	if _, err := s.owned(ctx, actor, playlistID, "you are not allowed to delete this playlist"); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, playlistID); err != nil {
		return storeError(err, "delete playlist")
	}
	return nil
}

// AddVideo appends a published video to the playlist.
func (s *Service) AddVideo(ctx context.Context, actor models.Actor, playlistID, videoID string) (models.Playlist, error) {
	ctx, span := logging.StartSpan(ctx, "playlists.AddVideo")
	defer span.End()

	if _, err := s.owned(ctx, actor, playlistID, "you are not allowed to edit this playlist"); err != nil {
		return models.Playlist{}, err
	}
	if err := s.checkVideo(ctx, videoID); err != nil {
		return models.Playlist{}, err
	}

	playlist, err := s.store.AddVideo(ctx, playlistID, videoID)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return models.Playlist{}, apperr.Wrap(apperr.ErrConflict, "video is already in the playlist", err)
		}
		return models.Playlist{}, storeError(err, "add video")
	}
	return playlist, nil
}

// RemoveVideo drops the video from the playlist.
func (s *Service) RemoveVideo(ctx context.Context, actor models.Actor, playlistID, videoID string) (models.Playlist, error) {
	ctx, span := logging.StartSpan(ctx, "playlists.RemoveVideo")
	defer span.End()

	if _, err := s.owned(ctx, actor, playlistID, "you are not allowed to edit this playlist"); err != nil {
		return models.Playlist{}, err
	}

	playlist, err := s.store.RemoveVideo(ctx, playlistID, videoID)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return models.Playlist{}, apperr.Wrap(apperr.ErrConflict, "video is not in the playlist", err)
		}
		return models.Playlist{}, storeError(err, "remove video")
	}
	return playlist, nil
}

// ToggleVideo removes the video when present and adds it otherwise.
func (s *Service) ToggleVideo(ctx context.Context, actor models.Actor, playlistID, videoID string) (ToggleResult, error) {
	playlist, err := s.owned(ctx, actor, playlistID, "you are not allowed to edit this playlist")
	if err != nil {
		return ToggleResult{}, err
	}

	for _, id := range playlist.VideoIDs {
		if id == videoID {
			updated, err := s.RemoveVideo(ctx, actor, playlistID, videoID)
			return ToggleResult{Playlist: updated}, err
		}
	}
	updated, err := s.AddVideo(ctx, actor, playlistID, videoID)
	return ToggleResult{Playlist: updated, Added: err == nil}, err
}

// ListForUser returns userID's playlists with their videos. Only the user
// may list them.
func (s *Service) ListForUser(ctx context.Context, actor models.Actor, userID string) ([]views.PlaylistDetail, error) {
	if err := ownership.Require(actor, userID, "you can only list your own playlists"); err != nil {
		return nil, err
	}
	return s.views.UserPlaylists(ctx, userID)
}

// NamesForUser returns the id and name of each of userID's playlists.
func (s *Service) NamesForUser(ctx context.Context, actor models.Actor, userID string) ([]views.PlaylistName, error) {
	if err := ownership.Require(actor, userID, "you can only list your own playlists"); err != nil {
		return nil, err
	}
	return s.views.PlaylistNames(ctx, userID)
}

// ContainingVideo lists the actor's playlists flagged by whether they hold
// videoID.
func (s *Service) ContainingVideo(ctx context.Context, actor models.Actor, videoID string) ([]views.PlaylistMembership, error) {
	return s.views.PlaylistsContainingVideo(ctx, actor, videoID)
}

// owned loads the playlist and checks the actor owns it. A missing playlist
// is reported before ownership.
func (s *Service) owned(ctx context.Context, actor models.Actor, playlistID, msg string) (models.Playlist, error) {
	playlist, err := s.store.FindByID(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, storeError(err, "find playlist")
	}
	if err := ownership.Require(actor, playlist.OwnerID, msg); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

func (s *Service) checkVideo(ctx context.Context, videoID string) error {
	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, "video not found", err)
		}
		return fmt.Errorf("find video: %w", err)
	}
	if !video.IsPublished {
		return apperr.New(apperr.ErrInvalidArgument, "video is not published")
	}
	return nil
}

func storeError(err error, op string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, "playlist not found", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
