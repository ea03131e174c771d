package handlers

import (
	"context"
	"net/http"

	"github.com/videocave/backend/internal/auth"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/storage"
)

// AccountHandler serves the authenticated account endpoints and channel pages.
type AccountHandler struct {
	Accounts  AccountService
	Channels  ChannelViews
	UploadDir string
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h AccountHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	user, err := h.Accounts.CurrentIdentity(ctx, actor)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newUserResponse(user))
}

// VerificationStatus handles GET /api/v1/users/check-email-verification-status.
func (h AccountHandler) VerificationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	status, err := h.Accounts.EmailVerificationStatus(ctx, actor)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, status)
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	in := auth.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmNewPassword,
	}
	if err := h.Accounts.ChangePassword(ctx, actor, in); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "password changed"})
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Accounts.UpdateAccount(ctx, actor, auth.AccountInput{Email: req.Email, FullName: req.FullName})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newUserResponse(user))
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Accounts.UpdateAvatar)
}

// UpdateCover handles PATCH /api/v1/users/cover-image.
func (h AccountHandler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Accounts.UpdateCover)
}

func (h AccountHandler) replaceImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(context.Context, models.Actor, *storage.LocalFile) (models.User, error),
) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	if err := parseUpload(w, r); err != nil {
		respondError(ctx, w, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, err := stageUpload(r, h.UploadDir, field)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := update(ctx, actor, file)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newUserResponse(user))
}

// Channel handles GET /api/v1/users/c/{handle}.
func (h AccountHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	profile, err := h.Channels.ChannelProfile(ctx, actor, pathVar(r, "handle"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, profile)
}

type changePasswordRequest struct {
	OldPassword        string `json:"oldPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

type updateAccountRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}
