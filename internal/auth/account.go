package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/storage"
)

// AccountInput changes contact details. Empty fields are left unchanged.
type AccountInput struct {
	Email    string
	FullName string
}

// CurrentIdentity returns the actor's identity without credentials.
func (m *Manager) CurrentIdentity(ctx context.Context, actor models.Actor) (models.User, error) {
	user, err := m.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return models.User{}, notFoundOr(err, "user not found", "find user")
	}
	return user.Redacted(), nil
}

// UpdateAccount changes the actor's email and/or full name.
func (m *Manager) UpdateAccount(ctx context.Context, actor models.Actor, in AccountInput) (models.User, error) {
	var email, fullName string
	var err error

	if strings.TrimSpace(in.Email) == "" && strings.TrimSpace(in.FullName) == "" {
		return models.User{}, apperr.New(apperr.ErrInvalidArgument, "email or full name is required")
	}
	if strings.TrimSpace(in.Email) != "" {
		if email, err = normalizeEmail(in.Email); err != nil {
			return models.User{}, err
		}
	}
	if strings.TrimSpace(in.FullName) != "" {
		if fullName, err = normalizeFullName(in.FullName); err != nil {
			return models.User{}, err
		}
	}

	if err := m.users.UpdateAccount(ctx, actor.UserID, email, fullName); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return models.User{}, apperr.Wrap(apperr.ErrConflict, "email is already registered", err)
		}
		return models.User{}, notFoundOr(err, "user not found", "update account")
	}
	return m.CurrentIdentity(ctx, actor)
}

// UpdateAvatar replaces the actor's avatar and removes the previous asset.
func (m *Manager) UpdateAvatar(ctx context.Context, actor models.Actor, file *storage.LocalFile) (models.User, error) {
	return m.replaceImage(ctx, actor, file, "avatar", func(u models.User) string { return u.AvatarPublicID }, m.users.UpdateAvatar)
}

// UpdateCover replaces the actor's cover image and removes the previous asset.
func (m *Manager) UpdateCover(ctx context.Context, actor models.Actor, file *storage.LocalFile) (models.User, error) {
	return m.replaceImage(ctx, actor, file, "cover image", func(u models.User) string { return u.CoverPublicID }, m.users.UpdateCover)
}

func (m *Manager) replaceImage(
	ctx context.Context,
	actor models.Actor,
	file *storage.LocalFile,
	field string,
	previous func(models.User) string,
	persist func(ctx context.Context, id string, asset models.AssetRef) error,
) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "auth.ReplaceImage")
	defer span.End()

	defer func() { m.discard(ctx, file) }()

	if err := checkImage(file, field); err != nil {
		return models.User{}, err
	}

	user, err := m.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return models.User{}, notFoundOr(err, "user not found", "find user")
	}

	staged := *file
	file = nil
	asset, err := m.assets.Store(ctx, staged)
	if err != nil {
		return models.User{}, err
	}

	if err := persist(ctx, user.ID, asset); err != nil {
		m.removeAsset(ctx, asset.PublicID)
		return models.User{}, notFoundOr(err, "user not found", "update "+field)
	}

	m.removeAsset(ctx, previous(user))
	return m.CurrentIdentity(ctx, actor)
}
