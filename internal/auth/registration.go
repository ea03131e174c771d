package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/mail"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/storage"
	"github.com/videocave/backend/internal/token"
)

// RegisterInput is the first registration phase.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// ProfileInput is the second registration phase. Cover is optional.
type ProfileInput struct {
	Handle string
	Avatar *storage.LocalFile
	Cover  *storage.LocalFile
}

// VerificationStatus reports whether the actor confirmed their email.
type VerificationStatus struct {
	Verified bool   `json:"isEmailVerified"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// Register creates a pending identity with a placeholder handle and emails a
// verification link. A failed delivery is reported as apperr.ErrDispatch; the
// identity stays persisted and the link can be re-sent.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "auth.Register")
	defer span.End()

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.User{}, err
	}
	fullName, err := normalizeFullName(in.FullName)
	if err != nil {
		return models.User{}, err
	}
	if err := checkPassword(in.Password); err != nil {
		return models.User{}, err
	}

	if _, err := m.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, apperr.New(apperr.ErrConflict, "email is already registered")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, fmt.Errorf("check existing account: %w", err)
	}

	if err := m.allow(ctx, scopeVerification, email); err != nil {
		return models.User{}, err
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, err
	}

	now := m.now()
	user := models.User{
		ID:           uuid.NewString(),
		Handle:       placeholderHandle(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		AvatarURL:    m.cfg.DefaultAvatarURL,
		WatchHistory: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return models.User{}, apperr.Wrap(apperr.ErrConflict, "email is already registered", err)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	if err := m.sendVerification(ctx, user, false); err != nil {
		return models.User{}, err
	}

	logging.FromContext(ctx).Info("user registered", "userId", user.ID)
	return user.Redacted(), nil
}

// CompleteProfile finishes registration by choosing a handle and uploading the
// avatar and optional cover. Uploads happen before any write; if a later step
// fails the uploaded assets are removed again.
func (m *Manager) CompleteProfile(ctx context.Context, actor models.Actor, in ProfileInput) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "auth.CompleteProfile")
	defer span.End()

	avatarFile, coverFile := in.Avatar, in.Cover
	defer func() {
		m.discard(ctx, avatarFile)
		m.discard(ctx, coverFile)
	}()

	handle, err := normalizeHandle(in.Handle)
	if err != nil {
		return models.User{}, err
	}
	if err := checkImage(avatarFile, "avatar"); err != nil {
		return models.User{}, err
	}
	if coverFile != nil {
		if err := checkImage(coverFile, "cover image"); err != nil {
			return models.User{}, err
		}
	}

	user, err := m.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return models.User{}, notFoundOr(err, "user not found", "find user")
	}
	if user.ProfileCompleted {
		return models.User{}, apperr.New(apperr.ErrConflict, "profile is already complete")
	}

	if existing, err := m.users.FindByHandle(ctx, handle); err == nil && existing.ID != user.ID {
		return models.User{}, apperr.New(apperr.ErrConflict, "handle is already taken")
	} else if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return models.User{}, fmt.Errorf("check handle: %w", err)
	}

	file := *avatarFile
	avatarFile = nil
	avatar, err := m.assets.Store(ctx, file)
	if err != nil {
		return models.User{}, err
	}

	var cover *models.AssetRef
	if coverFile != nil {
		file := *coverFile
		coverFile = nil
		ref, err := m.assets.Store(ctx, file)
		if err != nil {
			m.removeAsset(ctx, avatar.PublicID)
			return models.User{}, err
		}
		cover = &ref
	}

	if err := m.users.CompleteProfile(ctx, user.ID, handle, avatar, cover); err != nil {
		m.removeAsset(ctx, avatar.PublicID)
		if cover != nil {
			m.removeAsset(ctx, cover.PublicID)
		}
		if errors.Is(err, apperr.ErrConflict) {
			return models.User{}, apperr.Wrap(apperr.ErrConflict, "handle is already taken", err)
		}
		return models.User{}, notFoundOr(err, "user not found", "complete profile")
	}

	user, err = m.users.FindByID(ctx, user.ID)
	if err != nil {
		return models.User{}, fmt.Errorf("reload user: %w", err)
	}
	return user.Redacted(), nil
}

// VerifyEmail consumes a verification token. Only the most recently issued
// token is accepted, and only while the email is unverified.
func (m *Manager) VerifyEmail(ctx context.Context, rawToken string) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "auth.VerifyEmail")
	defer span.End()

	rawToken = strings.TrimSpace(rawToken)
	claims, err := m.tokens.Verify(rawToken, token.PurposeEmailVerify)
	if err != nil {
		return models.User{}, err
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return models.User{}, notFoundOr(err, "user not found", "find user")
	}
	if user.EmailVerified {
		return models.User{}, apperr.New(apperr.ErrConflict, "email is already verified")
	}
	if user.VerificationToken != rawToken {
		return models.User{}, apperr.New(apperr.ErrTokenInvalid, "verification link is no longer valid")
	}

	if err := m.users.MarkEmailVerified(ctx, user.ID, rawToken); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return models.User{}, apperr.Wrap(apperr.ErrConflict, "email is already verified", err)
		}
		return models.User{}, notFoundOr(err, "user not found", "mark email verified")
	}

	user.EmailVerified = true
	user.VerificationToken = ""
	return user.Redacted(), nil
}

// ResendVerification issues a fresh verification token, invalidating the
// previous one, and emails it.
func (m *Manager) ResendVerification(ctx context.Context, email string) error {
	ctx, span := logging.StartSpan(ctx, "auth.ResendVerification")
	defer span.End()

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		return notFoundOr(err, "user does not exist", "find user")
	}
	if user.EmailVerified {
		return apperr.New(apperr.ErrConflict, "email is already verified")
	}
	if err := m.allow(ctx, scopeVerification, email); err != nil {
		return err
	}

	return m.sendVerification(ctx, user, true)
}

// EmailVerificationStatus reports the actor's verification flag.
func (m *Manager) EmailVerificationStatus(ctx context.Context, actor models.Actor) (VerificationStatus, error) {
	user, err := m.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return VerificationStatus{}, notFoundOr(err, "user not found", "find user")
	}
	return VerificationStatus{Verified: user.EmailVerified, Email: user.Email, FullName: user.FullName}, nil
}

func (m *Manager) sendVerification(ctx context.Context, user models.User, resend bool) error {
	raw, _, err := m.tokens.Issue(user.ID, token.PurposeEmailVerify, m.cfg.VerificationTTL)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	if err := m.users.SetVerificationToken(ctx, user.ID, raw); err != nil {
		return notFoundOr(err, "user not found", "store verification token")
	}

	msg, err := mail.VerificationEmail(user.Email, user.FullName, m.links.VerifyEmail(raw), expiryText(m.cfg.VerificationTTL), resend)
	if err != nil {
		return err
	}
	if err := m.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, apperr.ErrDispatch) {
			return err
		}
		return apperr.Wrap(apperr.ErrDispatch, "failed to send verification email", err)
	}
	return nil
}

func placeholderHandle() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
