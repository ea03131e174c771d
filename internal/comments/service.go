// Package comments lists and edits comments on videos.
package comments

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

const (
	defaultLimit = 10
	maxLimit     = 100
	maxPage      = 1 << 20
)

// Store persists comments. ListByVideo returns one page, newest first, along
// with the total count for the video.
type Store interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	Update(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
	ListByVideo(ctx context.Context, videoID string, limit, offset int) ([]models.Comment, int, error)
}

// VideoFinder resolves the commented video.
type VideoFinder interface {
	FindByID(ctx context.Context, id string) (models.Video, error)
}

// UserFinder resolves comment authors.
type UserFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// View is a comment with its author's public projection.
type View struct {
	ID        string              `json:"id"`
	VideoID   string              `json:"videoId"`
	Content   string              `json:"content"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Owner     *views.OwnerSummary `json:"owner,omitempty"`
}

// Page is one page of comments.
type Page struct {
	Comments   []View `json:"comments"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"totalComments"`
	TotalPages int    `json:"totalPages"`
}

// Service implements the comment operations.
type Service struct {
	store  Store
	videos VideoFinder
	users  UserFinder
	now    func() time.Time
}

// NewService returns a comment service.
func NewService(store Store, videos VideoFinder, users UserFinder) *Service {
	return &Service{
		store:  store,
		videos: videos,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the clock used for comment timestamps.
func (s *Service) WithNowFunc(now func() time.Time) *Service {
	s.now = now
	return s
}

// List returns the requested page of comments on videoID, newest first.
// Pages start at 1; out of range values fall back to defaults, except a page
// beyond maxPage which is rejected.
func (s *Service) List(ctx context.Context, videoID string, page, limit int) (Page, error) {
	ctx, span := logging.StartSpan(ctx, "comments.List")
	defer span.End()

	if err := s.requireVideo(ctx, videoID); err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		return Page{}, apperr.New(apperr.ErrInvalidArgument, fmt.Sprintf("page must be at most %d", maxPage))
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	found, total, err := s.store.ListByVideo(ctx, videoID, limit, (page-1)*limit)
	if err != nil {
		return Page{}, fmt.Errorf("list comments: %w", err)
	}
	viewsOut, err := s.attachOwners(ctx, found)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Comments:   viewsOut,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Add posts a comment by the actor on videoID.
func (s *Service) Add(ctx context.Context, actor models.Actor, videoID, content string) (models.Comment, error) {
	ctx, span := logging.StartSpan(ctx, "comments.Add")
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, apperr.New(apperr.ErrInvalidArgument, "comment content is required")
	}
	if err := s.requireVideo(ctx, videoID); err != nil {
		return models.Comment{}, err
	}

	now := s.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   actor.UserID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, comment); err != nil {
		return models.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// Update replaces the content of a comment the actor owns.
func (s *Service) Update(ctx context.Context, actor models.Actor, commentID, content string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, apperr.New(apperr.ErrInvalidArgument, "comment content is required")
	}
	if _, err := s.owned(ctx, actor, commentID, "you can only edit your own comments"); err != nil {
		return models.Comment{}, err
	}

	comment, err := s.store.Update(ctx, commentID, content)
	if err != nil {
		return models.Comment{}, commentError(err, "update comment")
	}
	return comment, nil
}

// Delete removes a comment the actor owns, together with its likes.
func (s *Service) Delete(ctx context.Context, actor models.Actor, commentID string) error {
	if _, err := s.owned(ctx, actor, commentID, "you can only delete your own comments"); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, commentID); err != nil {
		return commentError(err, "delete comment")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, actor models.Actor, commentID, msg string) (models.Comment, error) {
	comment, err := s.store.FindByID(ctx, commentID)
	if err != nil {
		return models.Comment{}, commentError(err, "find comment")
	}
	if err := ownership.Require(actor, comment.OwnerID, msg); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (s *Service) requireVideo(ctx context.Context, videoID string) error {
	if _, err := s.videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, "video not found", err)
		}
		return fmt.Errorf("find video: %w", err)
	}
	return nil
}

func (s *Service) attachOwners(ctx context.Context, found []models.Comment) ([]View, error) {
	ownerIDs := views.Unique(views.Project(found, func(c models.Comment) string { return c.OwnerID }))
	owners := map[string]models.User{}
	if len(ownerIDs) > 0 {
		users, err := s.users.FindByIDs(ctx, ownerIDs)
		if err != nil {
			return nil, fmt.Errorf("load comment owners: %w", err)
		}
		owners = views.IndexBy(users, func(u models.User) string { return u.ID })
	}

	return views.Project(found, func(c models.Comment) View {
		v := View{
			ID:        c.ID,
			VideoID:   c.VideoID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
		if u, ok := owners[c.OwnerID]; ok {
			o := views.SummarizeOwner(u)
			v.Owner = &o
		}
		return v
	}), nil
}

func commentError(err error, op string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, "comment not found", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
