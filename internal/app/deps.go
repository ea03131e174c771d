package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/videocave/backend/internal/auth"
	"github.com/videocave/backend/internal/comments"
	"github.com/videocave/backend/internal/config"
	"github.com/videocave/backend/internal/db"
	"github.com/videocave/backend/internal/handlers"
	"github.com/videocave/backend/internal/history"
	"github.com/videocave/backend/internal/likes"
	"github.com/videocave/backend/internal/mail"
	"github.com/videocave/backend/internal/middleware"
	"github.com/videocave/backend/internal/password"
	"github.com/videocave/backend/internal/playlists"
	"github.com/videocave/backend/internal/ratelimit"
	"github.com/videocave/backend/internal/repositories"
	"github.com/videocave/backend/internal/storage"
	"github.com/videocave/backend/internal/token"
	"github.com/videocave/backend/internal/views"
)

const visitorTTL = 10 * time.Minute

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup releases clients opened along the way.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	var closers []func() error
	cleanup := func(context.Context) error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	users := repositories.NewPostgresUserRepository(pool)
	videoRepo := repositories.NewPostgresVideoRepository(pool)
	tweets := repositories.NewPostgresTweetRepository(pool)
	commentRepo := repositories.NewPostgresCommentRepository(pool)
	playlistRepo := repositories.NewPostgresPlaylistRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	likeRepo := repositories.NewPostgresLikeRepository(pool)

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte(cfg.Tokens.AccessSecret),
		RefreshSecret: []byte(cfg.Tokens.RefreshSecret),
		Issuer:        cfg.Tokens.Issuer,
	})
	if err != nil {
		return handlers.Dependencies{}, cleanup, fmt.Errorf("token codec: %w", err)
	}

	assets, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, cleanup, err
	}

	mailer, err := mail.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		return handlers.Dependencies{}, cleanup, err
	}

	var throttle auth.Throttle
	if cfg.RedisURL != "" {
		client, err := ratelimit.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return handlers.Dependencies{}, cleanup, err
		}
		closers = append(closers, client.Close)
		throttle = ratelimit.NewRedisLimiter(client, cfg.MailThrottle.Max, cfg.MailThrottle.Window)
	}

	manager, err := auth.NewManager(auth.Options{
		Users:    users,
		Hasher:   password.NewBcrypt(cfg.BcryptCost),
		Tokens:   codec,
		Mailer:   mailer,
		Assets:   assets,
		Throttle: throttle,
		Links:    mail.Links{BaseURL: cfg.ClientURL},
		Config: auth.Config{
			AccessTTL:        cfg.Tokens.AccessTTL,
			RefreshTTL:       cfg.Tokens.RefreshTTL,
			VerificationTTL:  cfg.Tokens.VerificationTTL,
			ResetTTL:         cfg.Tokens.ResetTTL,
			DefaultAvatarURL: cfg.DefaultAvatarURL,
		},
	})
	if err != nil {
		return handlers.Dependencies{}, cleanup, err
	}

	assembler := views.NewAssembler(views.Sources{
		Users:         users,
		Videos:        videoRepo,
		Playlists:     playlistRepo,
		Subscriptions: subscriptions,
		Likes:         likeRepo,
	})

	deps := handlers.Dependencies{
		Accounts:  manager,
		Channels:  assembler,
		History:   history.NewService(users, videoRepo, assembler),
		Playlists: playlists.NewService(playlistRepo, videoRepo, assembler),
		Likes: likes.NewService(likes.Deps{
			Likes:    likeRepo,
			Videos:   videoRepo,
			Comments: commentRepo,
			Tweets:   tweets,
			Views:    assembler,
		}),
		Comments:     comments.NewService(commentRepo, videoRepo, users),
		Health:       pool,
		Limiter:      middleware.NewIPRateLimiter(cfg.LoginLimit.Requests, cfg.LoginLimit.Window, cfg.LoginLimit.Burst, visitorTTL),
		UploadDir:    cfg.UploadDir,
		SecureCookie: cfg.CookieSecure,
	}

	return deps, cleanup, nil
}
