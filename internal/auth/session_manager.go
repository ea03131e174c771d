// Package auth runs the account lifecycle: two-phase registration, email
// verification, login and logout, refresh rotation and password recovery.
//
// Every identity holds at most one live refresh token. Logging in replaces it,
// refreshing rotates it and logging out clears it. A refresh token is honoured
// only while it equals the stored one.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/mail"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/password"
	"github.com/videocave/backend/internal/storage"
	"github.com/videocave/backend/internal/token"
)

const (
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 10 * 24 * time.Hour
	defaultVerificationTTL = 60 * time.Minute
	defaultResetTTL        = 10 * time.Minute
)

// Throttle scopes.
const (
	scopeVerification = "verification"
	scopeReset        = "password-reset"
)

// Config tunes token lifetimes and defaults.
type Config struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	VerificationTTL  time.Duration
	ResetTTL         time.Duration
	DefaultAvatarURL string
}

// Options wires a Manager to its collaborators. Throttle is optional.
type Options struct {
	Users    IdentityStore
	Hasher   password.Hasher
	Tokens   TokenCodec
	Mailer   Mailer
	Assets   AssetStore
	Throttle Throttle
	Links    mail.Links
	Config   Config
}

// Session is the result of a successful login or refresh.
type Session struct {
	User   models.User
	Tokens models.SessionTokens
}

// Manager coordinates the session lifecycle. It is stateless apart from its
// collaborators and is safe for concurrent use.
type Manager struct {
	users    IdentityStore
	hasher   password.Hasher
	tokens   TokenCodec
	mailer   Mailer
	assets   AssetStore
	throttle Throttle
	links    mail.Links
	cfg      Config
	now      func() time.Time
}

// NewManager validates opts and returns a Manager.
func NewManager(opts Options) (*Manager, error) {
	switch {
	case opts.Users == nil:
		return nil, errors.New("auth manager: identity store is required")
	case opts.Hasher == nil:
		return nil, errors.New("auth manager: hasher is required")
	case opts.Tokens == nil:
		return nil, errors.New("auth manager: token codec is required")
	case opts.Mailer == nil:
		return nil, errors.New("auth manager: mailer is required")
	case opts.Assets == nil:
		return nil, errors.New("auth manager: asset store is required")
	}

	cfg := opts.Config
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = defaultVerificationTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = defaultResetTTL
	}

	return &Manager{
		users:    opts.Users,
		hasher:   opts.Hasher,
		tokens:   opts.Tokens,
		mailer:   opts.Mailer,
		assets:   opts.Assets,
		throttle: opts.Throttle,
		links:    opts.Links,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithNowFunc overrides the clock used for timestamps.
func (m *Manager) WithNowFunc(now func() time.Time) *Manager {
	m.now = now
	return m
}

// LoginInput identifies the account by handle or email.
type LoginInput struct {
	Handle   string
	Email    string
	Password string
}

// Login checks credentials and starts a new session, replacing any refresh
// token issued before.
func (m *Manager) Login(ctx context.Context, in LoginInput) (Session, error) {
	ctx, span := logging.StartSpan(ctx, "auth.Login")
	defer span.End()

	handle := strings.ToLower(strings.TrimSpace(in.Handle))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if handle == "" && email == "" {
		return Session{}, apperr.New(apperr.ErrInvalidArgument, "handle or email is required")
	}
	if in.Password == "" {
		return Session{}, apperr.New(apperr.ErrInvalidArgument, "password is required")
	}

	user, err := m.lookupLogin(ctx, handle, email)
	if err != nil {
		return Session{}, err
	}

	ok, err := m.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("verify credentials: %w", err)
	}
	if !ok {
		logging.FromContext(ctx).Warn("login password mismatch", "userId", user.ID)
		return Session{}, apperr.New(apperr.ErrUnauthorized, "invalid credentials")
	}

	tokens, err := m.issuePair(user.ID)
	if err != nil {
		return Session{}, err
	}
	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return Session{}, fmt.Errorf("store refresh token: %w", err)
	}

	return Session{User: user.Redacted(), Tokens: tokens}, nil
}

func (m *Manager) lookupLogin(ctx context.Context, handle, email string) (models.User, error) {
	if handle != "" {
		user, err := m.users.FindByHandle(ctx, handle)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return models.User{}, fmt.Errorf("find user by handle: %w", err)
		}
	}
	if email != "" {
		user, err := m.users.FindByEmail(ctx, email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return models.User{}, fmt.Errorf("find user by email: %w", err)
		}
	}
	return models.User{}, apperr.New(apperr.ErrNotFound, "user does not exist")
}

// Logout ends the actor's session by clearing the stored refresh token.
func (m *Manager) Logout(ctx context.Context, actor models.Actor) error {
	if err := m.users.ClearRefreshToken(ctx, actor.UserID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Wrap(apperr.ErrNotFound, "user not found", err)
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// Refresh exchanges the stored refresh token for a new pair. The presented
// token stops working once the exchange succeeds.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	ctx, span := logging.StartSpan(ctx, "auth.Refresh")
	defer span.End()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return Session{}, apperr.New(apperr.ErrUnauthorized, "refresh token is required")
	}

	claims, err := m.tokens.Verify(refreshToken, token.PurposeRefresh)
	if err != nil {
		return Session{}, err
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Session{}, apperr.New(apperr.ErrUnauthorized, "invalid refresh token")
		}
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		logging.FromContext(ctx).Warn("refresh token mismatch", "userId", user.ID)
		return Session{}, apperr.New(apperr.ErrUnauthorized, "refresh token is expired or used")
	}

	tokens, err := m.issuePair(user.ID)
	if err != nil {
		return Session{}, err
	}
	if err := m.users.RotateRefreshToken(ctx, user.ID, refreshToken, tokens.RefreshToken); err != nil {
		if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
			return Session{}, apperr.New(apperr.ErrUnauthorized, "refresh token is expired or used")
		}
		return Session{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return Session{User: user.Redacted(), Tokens: tokens}, nil
}

// Authenticate resolves an access token to the identity it was issued for.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := m.tokens.Verify(accessToken, token.PurposeAccess)
	if err != nil {
		return models.User{}, err
	}
	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.User{}, apperr.New(apperr.ErrUnauthorized, "invalid access token")
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return user.Redacted(), nil
}

func (m *Manager) issuePair(userID string) (models.SessionTokens, error) {
	access, accessExp, err := m.tokens.Issue(userID, token.PurposeAccess, m.cfg.AccessTTL)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := m.tokens.Issue(userID, token.PurposeRefresh, m.cfg.RefreshTTL)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) allow(ctx context.Context, scope, email string) error {
	if m.throttle == nil {
		return nil
	}
	return m.throttle.Allow(ctx, scope, email)
}

// discard removes a staged upload that was never handed to the asset store.
func (m *Manager) discard(ctx context.Context, file *storage.LocalFile) {
	if file == nil {
		return
	}
	if err := storage.Discard(*file); err != nil {
		logging.FromContext(ctx).Warn("failed to remove staged upload", "error", err)
	}
}

// removeAsset deletes a stored asset, logging failures. It is used for
// compensation and for replaced images, neither of which may fail the caller.
func (m *Manager) removeAsset(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := m.assets.Remove(ctx, publicID); err != nil {
		logging.FromContext(ctx).Warn("failed to remove asset", "publicId", publicID, "error", err)
	}
}

func notFoundOr(err error, msg, op string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.ErrNotFound, msg, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func expiryText(d time.Duration) string {
	if d%time.Hour == 0 && d >= 2*time.Hour {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
