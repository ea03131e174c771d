package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/auth"
	"github.com/videocave/backend/internal/comments"
	"github.com/videocave/backend/internal/history"
	"github.com/videocave/backend/internal/likes"
	"github.com/videocave/backend/internal/middleware"
	"github.com/videocave/backend/internal/playlists"
	"github.com/videocave/backend/internal/views"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts     AccountService
	Channels     ChannelViews
	History      HistoryService
	Playlists    PlaylistService
	Likes        LikeService
	Comments     CommentService
	Health       Pinger
	Limiter      middleware.RateLimiter
	UploadDir    string
	SecureCookie bool
}

// RegisterRoutes wires HTTP handlers into the provided router.
func RegisterRoutes(router *mux.Router, deps Dependencies) {
	health := HealthHandler{DB: deps.Health}
	authn := AuthHandler{Accounts: deps.Accounts, UploadDir: deps.UploadDir, SecureCookie: deps.SecureCookie}
	account := AccountHandler{Accounts: deps.Accounts, Channels: deps.Channels, UploadDir: deps.UploadDir}
	watch := HistoryHandler{History: deps.History}
	lists := PlaylistHandler{Playlists: deps.Playlists}
	liking := LikeHandler{Likes: deps.Likes}
	remarks := CommentHandler{Comments: deps.Comments}

	requireAuth := middleware.RequireAuth(deps.Accounts)
	private := func(fn http.HandlerFunc) http.Handler { return requireAuth(fn) }
	limited := func(scope string, h http.Handler) http.Handler { return middleware.Limit(deps.Limiter, scope)(h) }

	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	router.HandleFunc("/healthz", health.Handle)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/healthcheck", health.Handle)

	users := api.PathPrefix("/users").Subrouter()
	users.Handle("/register/initial", limited("register", http.HandlerFunc(authn.RegisterInitial))).Methods(http.MethodPost)
	users.Handle("/register/complete", private(authn.RegisterComplete)).Methods(http.MethodPost)
	users.HandleFunc("/verify-email/{token}", authn.VerifyEmail).Methods(http.MethodPost)
	users.Handle("/resend-verification-email", limited("resend", http.HandlerFunc(authn.ResendVerification))).Methods(http.MethodPost)
	users.Handle("/login", limited("login", http.HandlerFunc(authn.Login))).Methods(http.MethodPost)
	users.Handle("/logout", private(authn.Logout)).Methods(http.MethodPost)
	users.Handle("/refresh-token", limited("refresh", http.HandlerFunc(authn.Refresh))).Methods(http.MethodPost)
	users.Handle("/forgot-password", limited("forgot", http.HandlerFunc(authn.ForgotPassword))).Methods(http.MethodPost)
	users.HandleFunc("/reset-password/{token}", authn.ResetPassword).Methods(http.MethodPost)
	users.Handle("/change-password", private(account.ChangePassword)).Methods(http.MethodPost)
	users.Handle("/update-account", private(account.UpdateAccount)).Methods(http.MethodPatch)
	users.Handle("/avatar", private(account.UpdateAvatar)).Methods(http.MethodPatch)
	users.Handle("/cover-image", private(account.UpdateCover)).Methods(http.MethodPatch)
	users.Handle("/current-user", private(account.CurrentUser)).Methods(http.MethodGet)
	users.Handle("/check-email-verification-status", private(account.VerificationStatus)).Methods(http.MethodGet)
	users.Handle("/c/{handle}", private(account.Channel)).Methods(http.MethodGet)
	users.Handle("/history", private(watch.List)).Methods(http.MethodGet)
	users.Handle("/history/clear-history", private(watch.Clear)).Methods(http.MethodPatch)
	users.Handle("/history/clear/{videoId}", private(watch.Remove)).Methods(http.MethodPatch)
	users.Handle("/history/{videoId}", private(watch.Record)).Methods(http.MethodPost)

	api.Handle("/playlists", private(lists.Create)).Methods(http.MethodPost)
	pl := api.PathPrefix("/playlists").Subrouter()
	pl.Handle("/add/{videoId}/{playlistId}", private(lists.AddVideo)).Methods(http.MethodPatch)
	pl.Handle("/remove/{videoId}/{playlistId}", private(lists.RemoveVideo)).Methods(http.MethodPatch)
	pl.Handle("/toggle/{videoId}/{playlistId}", private(lists.ToggleVideo)).Methods(http.MethodPatch)
	pl.Handle("/user/{userId}/playlistNames", private(lists.NamesForUser)).Methods(http.MethodGet)
	pl.Handle("/user/{userId}", private(lists.ListForUser)).Methods(http.MethodGet)
	pl.Handle("/contains-video/{videoId}", private(lists.ContainingVideo)).Methods(http.MethodGet)
	pl.Handle("/{playlistId}", private(lists.Get)).Methods(http.MethodGet)
	pl.Handle("/{playlistId}", private(lists.Update)).Methods(http.MethodPatch)
	pl.Handle("/{playlistId}", private(lists.Delete)).Methods(http.MethodDelete)

	lk := api.PathPrefix("/likes").Subrouter()
	lk.Handle("/toggle/v/{videoId}", private(liking.ToggleVideo)).Methods(http.MethodPost)
	lk.Handle("/toggle/c/{commentId}", private(liking.ToggleComment)).Methods(http.MethodPost)
	lk.Handle("/toggle/t/{tweetId}", private(liking.ToggleTweet)).Methods(http.MethodPost)
	lk.Handle("/videos", private(liking.LikedVideos)).Methods(http.MethodGet)
	lk.HandleFunc("/count/{videoId}", liking.VideoLikeCount).Methods(http.MethodGet)

	cm := api.PathPrefix("/comments").Subrouter()
	cm.HandleFunc("/{videoId}", remarks.List).Methods(http.MethodGet)
	cm.Handle("/{videoId}", private(remarks.Add)).Methods(http.MethodPost)
	cm.Handle("/c/{commentId}", private(remarks.Update)).Methods(http.MethodPatch)
	cm.Handle("/c/{commentId}", private(remarks.Delete)).Methods(http.MethodDelete)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	respondError(r.Context(), w, apperr.New(apperr.ErrNotFound, "route not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}

var (
	_ AccountService  = (*auth.Manager)(nil)
	_ ChannelViews    = (*views.Assembler)(nil)
	_ HistoryService  = (*history.Service)(nil)
	_ PlaylistService = (*playlists.Service)(nil)
	_ LikeService     = (*likes.Service)(nil)
	_ CommentService  = (*comments.Service)(nil)
)
