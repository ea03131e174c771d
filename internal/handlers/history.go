package handlers

import "net/http"

// HistoryHandler serves the watch history endpoints.
type HistoryHandler struct {
	History HistoryService
}

// List handles GET /api/v1/users/history.
func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	videos, err := h.History.List(ctx, actor)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, videos)
}

// Record handles POST /api/v1/users/history/{videoId}.
func (h HistoryHandler) Record(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	if err := h.History.Record(ctx, actor, pathVar(r, "videoId")); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "view recorded"})
}

// Remove handles PATCH /api/v1/users/history/clear/{videoId}.
func (h HistoryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	if err := h.History.Remove(ctx, actor, pathVar(r, "videoId")); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "video removed from watch history"})
}

// Clear handles PATCH /api/v1/users/history/clear-history.
func (h HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorOrReject(w, r)
	if !ok {
		return
	}

	if err := h.History.Clear(ctx, actor); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, messageResponse{Message: "watch history cleared"})
}
