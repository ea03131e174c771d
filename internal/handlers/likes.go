package handlers

import (
	"net/http"

	"github.com/videocave/backend/internal/models"
)

// LikeHandler serves the like endpoints.
type LikeHandler struct {
	Likes LikeService
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.VideoTarget(pathVar(r, "videoId")))
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.CommentTarget(pathVar(r, "commentId")))
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.TweetTarget(pathVar(r, "tweetId")))
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	result, err := h.Likes.Toggle(ctx, actor, target)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, result)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	liked, err := h.Likes.LikedVideos(ctx, actor)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, liked)
}

// VideoLikeCount handles GET /api/v1/likes/count/{videoId}.
func (h LikeHandler) VideoLikeCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.Likes.VideoLikeCount(ctx, pathVar(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, likeCountResponse{Count: count})
}

type likeCountResponse struct {
	Count int `json:"likesCount"`
}
