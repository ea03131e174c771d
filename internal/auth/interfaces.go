package auth

import (
	"context"
	"time"

	"github.com/videocave/backend/internal/mail"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/storage"
	"github.com/videocave/backend/internal/token"
)

// IdentityStore persists identities. Methods report missing identities with
// an error matching apperr.ErrNotFound and uniqueness or state conflicts with
// one matching apperr.ErrConflict.
type IdentityStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByHandle(ctx context.Context, handle string) (models.User, error)
	SetVerificationToken(ctx context.Context, id, token string) error
	MarkEmailVerified(ctx context.Context, id, token string) error
	CompleteProfile(ctx context.Context, id, handle string, avatar models.AssetRef, cover *models.AssetRef) error
	UpdateAccount(ctx context.Context, id, email, fullName string) error
	UpdateAvatar(ctx context.Context, id string, asset models.AssetRef) error
	UpdateCover(ctx context.Context, id string, asset models.AssetRef) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetRefreshToken(ctx context.Context, id, token string) error
	RotateRefreshToken(ctx context.Context, id, presented, next string) error
	ClearRefreshToken(ctx context.Context, id string) error
}

// TokenCodec issues and verifies purpose-bound tokens.
type TokenCodec interface {
	Issue(subject string, purpose token.Purpose, ttl time.Duration) (string, time.Time, error)
	Verify(raw string, purpose token.Purpose) (token.Claims, error)
}

// AssetStore uploads staged files and removes stored assets.
type AssetStore interface {
	Store(ctx context.Context, file storage.LocalFile) (models.AssetRef, error)
	Remove(ctx context.Context, publicID string) error
}

// Mailer delivers a message and reports delivery failures.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Throttle bounds mail-sending operations per recipient.
type Throttle interface {
	Allow(ctx context.Context, scope, subject string) error
}
