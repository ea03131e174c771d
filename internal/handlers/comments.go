package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/models"
)

// CommentHandler serves the comment endpoints.
type CommentHandler struct {
	Comments CommentService
}

// List handles GET /api/v1/comments/{videoId}?page=&limit=.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := queryInt(r, "page")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	result, err := h.Comments.List(ctx, pathVar(r, "videoId"), page, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, result)
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	comment, err := h.Comments.Add(ctx, actor, pathVar(r, "videoId"), req.text())
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, newCommentResponse(comment))
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	comment, err := h.Comments.Update(ctx, actor, pathVar(r, "commentId"), req.text())
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newCommentResponse(comment))
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	if err := h.Comments.Delete(ctx, actor, pathVar(r, "commentId")); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "comment deleted"})
}

// commentRequest accepts the content under its own name or the legacy
// comment/updatedComment keys.
type commentRequest struct {
	Content        string `json:"content"`
	Comment        string `json:"comment"`
	UpdatedComment string `json:"updatedComment"`
}

func (c commentRequest) text() string {
	switch {
	case c.Content != "":
		return c.Content
	case c.Comment != "":
		return c.Comment
	default:
		return c.UpdatedComment
	}
}

type commentResponse struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newCommentResponse(c models.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		VideoID:   c.VideoID,
		OwnerID:   c.OwnerID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrInvalidArgument, key+" must be a number", err)
	}
	return n, nil
}
