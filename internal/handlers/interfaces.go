package handlers

import (
	"context"

	"github.com/videocave/backend/internal/auth"
	"github.com/videocave/backend/internal/comments"
	"github.com/videocave/backend/internal/likes"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/playlists"
	"github.com/videocave/backend/internal/storage"
	"github.com/videocave/backend/internal/views"
)

// AccountService runs registration, sessions and account maintenance.
type AccountService interface {
	Register(ctx context.Context, in auth.RegisterInput) (models.User, error)
	CompleteProfile(ctx context.Context, actor models.Actor, in auth.ProfileInput) (models.User, error)
	VerifyEmail(ctx context.Context, rawToken string) (models.User, error)
	ResendVerification(ctx context.Context, email string) error
	EmailVerificationStatus(ctx context.Context, actor models.Actor) (auth.VerificationStatus, error)
	Login(ctx context.Context, in auth.LoginInput) (auth.Session, error)
	Logout(ctx context.Context, actor models.Actor) error
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	ChangePassword(ctx context.Context, actor models.Actor, in auth.ChangePasswordInput) error
	CurrentIdentity(ctx context.Context, actor models.Actor) (models.User, error)
	UpdateAccount(ctx context.Context, actor models.Actor, in auth.AccountInput) (models.User, error)
	UpdateAvatar(ctx context.Context, actor models.Actor, file *storage.LocalFile) (models.User, error)
	UpdateCover(ctx context.Context, actor models.Actor, file *storage.LocalFile) (models.User, error)
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// ChannelViews builds the public channel page.
type ChannelViews interface {
	ChannelProfile(ctx context.Context, viewer models.Actor, handle string) (views.ChannelProfile, error)
}

// HistoryService manages the actor's watch history.
type HistoryService interface {
	List(ctx context.Context, actor models.Actor) ([]views.VideoSummary, error)
	Record(ctx context.Context, actor models.Actor, videoID string) error
	Remove(ctx context.Context, actor models.Actor, videoID string) error
	Clear(ctx context.Context, actor models.Actor) error
}

// PlaylistService manages playlists and their membership.
type PlaylistService interface {
	Create(ctx context.Context, actor models.Actor, in playlists.Input) (models.Playlist, error)
	Detail(ctx context.Context, actor models.Actor, playlistID string) (views.PlaylistDetail, error)
	Update(ctx context.Context, actor models.Actor, playlistID string, in playlists.Input) (models.Playlist, error)
	Delete(ctx context.Context, actor models.Actor, playlistID string) error
	AddVideo(ctx context.Context, actor models.Actor, playlistID, videoID string) (models.Playlist, error)
	RemoveVideo(ctx context.Context, actor models.Actor, playlistID, videoID string) (models.Playlist, error)
	ToggleVideo(ctx context.Context, actor models.Actor, playlistID, videoID string) (playlists.ToggleResult, error)
	ListForUser(ctx context.Context, actor models.Actor, userID string) ([]views.PlaylistDetail, error)
	NamesForUser(ctx context.Context, actor models.Actor, userID string) ([]views.PlaylistName, error)
	ContainingVideo(ctx context.Context, actor models.Actor, videoID string) ([]views.PlaylistMembership, error)
}

// LikeService toggles and lists likes.
type LikeService interface {
	Toggle(ctx context.Context, actor models.Actor, target models.LikeTarget) (likes.ToggleResult, error)
	LikedVideos(ctx context.Context, actor models.Actor) ([]views.LikedVideo, error)
	VideoLikeCount(ctx context.Context, videoID string) (int, error)
}

// CommentService manages comments on videos.
type CommentService interface {
	List(ctx context.Context, videoID string, page, limit int) (comments.Page, error)
	Add(ctx context.Context, actor models.Actor, videoID, content string) (models.Comment, error)
	Update(ctx context.Context, actor models.Actor, commentID, content string) (models.Comment, error)
	Delete(ctx context.Context, actor models.Actor, commentID string) error
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
