package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/mail"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/token"
)

// ChangePasswordInput carries the current password and the replacement.
type ChangePasswordInput struct {
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// ForgotPassword emails a short-lived reset link to the account owner.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := logging.StartSpan(ctx, "auth.ForgotPassword")
	defer span.End()

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		return notFoundOr(err, "user does not exist", "find user")
	}
	if err := m.allow(ctx, scopeReset, email); err != nil {
		return err
	}

	raw, _, err := m.tokens.Issue(user.ID, token.PurposePasswordReset, m.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	msg, err := mail.PasswordResetEmail(user.Email, user.FullName, m.links.ResetPassword(raw), expiryText(m.cfg.ResetTTL))
	if err != nil {
		return err
	}
	if err := m.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, apperr.ErrDispatch) {
			return err
		}
		return apperr.Wrap(apperr.ErrDispatch, "failed to send password reset email", err)
	}
	return nil
}

// ResetPassword sets a new password for the subject of a reset token. The
// stored refresh token is cleared so existing sessions cannot be renewed.
func (m *Manager) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	ctx, span := logging.StartSpan(ctx, "auth.ResetPassword")
	defer span.End()

	if newPassword == "" {
		return apperr.New(apperr.ErrInvalidArgument, "new password is required")
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	claims, err := m.tokens.Verify(rawToken, token.PurposePasswordReset)
	if err != nil {
		return err
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return notFoundOr(err, "user not found", "find user")
	}

	return m.setPassword(ctx, user.ID, newPassword)
}

// ChangePassword replaces the actor's password after checking the current one.
func (m *Manager) ChangePassword(ctx context.Context, actor models.Actor, in ChangePasswordInput) error {
	ctx, span := logging.StartSpan(ctx, "auth.ChangePassword")
	defer span.End()

	if in.OldPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return apperr.New(apperr.ErrInvalidArgument, "old password, new password and confirmation are required")
	}

	user, err := m.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return notFoundOr(err, "user not found", "find user")
	}

	ok, err := m.hasher.Verify(in.OldPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	if !ok {
		return apperr.New(apperr.ErrUnauthorized, "old password is incorrect")
	}
	if in.NewPassword != in.ConfirmPassword {
		return apperr.New(apperr.ErrInvalidArgument, "new password and confirmation do not match")
	}
	if err := checkPassword(in.NewPassword); err != nil {
		return err
	}

	hash, err := m.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	if err := m.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return notFoundOr(err, "user not found", "update password")
	}
	return nil
}

func (m *Manager) setPassword(ctx context.Context, userID, plaintext string) error {
	hash, err := m.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	if err := m.users.UpdatePassword(ctx, userID, hash); err != nil {
		return notFoundOr(err, "user not found", "update password")
	}
	if err := m.users.ClearRefreshToken(ctx, userID); err != nil {
		return notFoundOr(err, "user not found", "clear refresh token")
	}
	return nil
}
