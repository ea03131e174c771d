package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/videocave/backend/internal/auth"
	"github.com/videocave/backend/internal/middleware"
	"github.com/videocave/backend/internal/models"
)

// RefreshTokenCookie names the cookie carrying the refresh token.
const RefreshTokenCookie = "refreshToken"

// AuthHandler implements registration, session and recovery endpoints.
type AuthHandler struct {
	Accounts     AccountService
	UploadDir    string
	SecureCookie bool
	NowFunc      func() time.Time
}

// RegisterInitial handles POST /api/v1/users/register/initial.
func (h AuthHandler) RegisterInitial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	user, err := h.Accounts.Register(ctx, auth.RegisterInput{Email: req.Email, Password: req.Password, FullName: req.FullName})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, newUserResponse(user))
}

// RegisterComplete handles POST /api/v1/users/register/complete. It expects a
// multipart body with the handle, an avatar and an optional cover image.
func (h AuthHandler) RegisterComplete(w http.ResponseWriter, r *http.Request) {
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

	avatar, err := stageUpload(r, h.UploadDir, "avatar")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	cover, err := stageUpload(r, h.UploadDir, "coverImage")
	if err != nil {
		discardUpload(avatar)
		respondError(ctx, w, err)
		return
	}

	handle := r.FormValue("handle")
	if handle == "" {
		handle = r.FormValue("userName")
	}

	user, err := h.Accounts.CompleteProfile(ctx, actor, auth.ProfileInput{Handle: handle, Avatar: avatar, Cover: cover})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, newUserResponse(user))
}

// VerifyEmail handles POST /api/v1/users/verify-email/{token}.
func (h AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.Accounts.VerifyEmail(ctx, pathVar(r, "token"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newUserResponse(user))
}

// ResendVerification handles POST /api/v1/users/resend-verification-email.
func (h AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Accounts.ResendVerification(ctx, req.Email); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "verification email sent"})
}

// Login handles POST /api/v1/users/login. The issued tokens are returned in
// the body and set as HTTP-only cookies.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	handle := req.Handle
	if handle == "" {
		handle = req.UserName
	}

	session, err := h.Accounts.Login(ctx, auth.LoginInput{Handle: handle, Email: req.Email, Password: req.Password})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, session.Tokens)
	respondJSON(ctx, w, http.StatusOK, newSessionResponse(session))
}

// Logout handles POST /api/v1/users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	if err := h.Accounts.Logout(ctx, actor); err != nil {
		respondError(ctx, w, err)
		return
	}

	h.clearSessionCookies(w)
	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "logged out"})
}

// Refresh handles POST /api/v1/users/refresh-token. The refresh token is read
// from its cookie or from the request body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var raw string
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(ctx, w, err)
			return
		}
		raw = strings.TrimSpace(req.RefreshToken)
	}

	session, err := h.Accounts.Refresh(ctx, raw)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, session.Tokens)
	respondJSON(ctx, w, http.StatusOK, newSessionResponse(session))
}

// ForgotPassword handles POST /api/v1/users/forgot-password.
func (h AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Accounts.ForgotPassword(ctx, req.Email); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "password reset email sent"})
}

// ResetPassword handles POST /api/v1/users/reset-password/{token}.
func (h AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	if err := h.Accounts.ResetPassword(ctx, pathVar(r, "token"), req.NewPassword); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "password has been reset"})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginRequest struct {
	Handle   string `json:"handle"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

type sessionResponse struct {
	User   userResponse         `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

func newSessionResponse(s auth.Session) sessionResponse {
	return sessionResponse{User: newUserResponse(s.User), Tokens: s.Tokens}
}

func (h AuthHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h AuthHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if h.SecureCookie {
		c.SameSite = http.SameSiteNoneMode
	}
	if !expires.IsZero() && value != "" {
		if maxAge := int(expires.Sub(h.now()).Seconds()); maxAge > 0 {
			c.MaxAge = maxAge
		}
	}
	return c
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
