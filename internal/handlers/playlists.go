package handlers

import (
	"net/http"
	"time"

	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/playlists"
)

// PlaylistHandler serves the playlist endpoints. Every route requires an
// authenticated caller.
type PlaylistHandler struct {
	Playlists PlaylistService
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	playlist, err := h.Playlists.Create(ctx, actor, playlists.Input{Name: req.Name, Description: req.Description})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, newPlaylistResponse(playlist))
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	detail, err := h.Playlists.Detail(ctx, actor, pathVar(r, "playlistId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, detail)
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(ctx, w, err)
		return
	}

	playlist, err := h.Playlists.Update(ctx, actor, pathVar(r, "playlistId"), playlists.Input{Name: req.Name, Description: req.Description})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPlaylistResponse(playlist))
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	if err := h.Playlists.Delete(ctx, actor, pathVar(r, "playlistId")); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "playlist deleted"})
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	playlist, err := h.Playlists.AddVideo(ctx, actor, pathVar(r, "playlistId"), pathVar(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPlaylistResponse(playlist))
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	playlist, err := h.Playlists.RemoveVideo(ctx, actor, pathVar(r, "playlistId"), pathVar(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, newPlaylistResponse(playlist))
}

// ToggleVideo handles PATCH /api/v1/playlists/toggle/{videoId}/{playlistId}.
func (h PlaylistHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	result, err := h.Playlists.ToggleVideo(ctx, actor, pathVar(r, "playlistId"), pathVar(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toggleVideoResponse{Playlist: newPlaylistResponse(result.Playlist), Added: result.Added})
}

// ListForUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	details, err := h.Playlists.ListForUser(ctx, actor, pathVar(r, "userId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, details)
}

// NamesForUser handles GET /api/v1/playlists/user/{userId}/playlistNames.
func (h PlaylistHandler) NamesForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	names, err := h.Playlists.NamesForUser(ctx, actor, pathVar(r, "userId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, names)
}

// ContainingVideo handles GET /api/v1/playlists/contains-video/{videoId}.
func (h PlaylistHandler) ContainingVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	memberships, err := h.Playlists.ContainingVideo(ctx, actor, pathVar(r, "videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, memberships)
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type playlistResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Videos      []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newPlaylistResponse(p models.Playlist) playlistResponse {
	videos := p.VideoIDs
	if videos == nil {
		videos = []string{}
	}
	return playlistResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Videos:      videos,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type toggleVideoResponse struct {
	Playlist playlistResponse `json:"playlist"`
	Added    bool             `json:"added"`
}
