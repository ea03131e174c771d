package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/logging"
	"github.com/videocave/backend/internal/models"
)

// AccessTokenCookie names the cookie carrying the access token.
const AccessTokenCookie = "accessToken"

type actorKey struct{}

// Authenticator resolves an access token to the identity it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// WithActor stores the authenticated caller on the context.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated caller, if any.
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok && actor.UserID != ""
}

// RequireAuth rejects requests without a valid access token. The token is read
// from the access token cookie or an Authorization bearer header.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := accessToken(r)
			if raw == "" {
				writeError(ctx, w, apperr.New(apperr.ErrUnauthorized, "unauthorized request"))
				return
			}

			user, err := authn.Authenticate(ctx, raw)
			if err != nil {
				writeError(ctx, w, err)
				return
			}

			ctx = WithActor(ctx, models.Actor{UserID: user.ID})
			ctx = logging.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, value, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(value)
	}
	return ""
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	logger := logging.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("authentication failed", "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": apperr.Message(err)})
}
