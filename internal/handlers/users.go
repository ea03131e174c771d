package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/models"
	"github.com/videocave/backend/internal/storage"
)

const maxUploadBytes = 10 << 20

// userResponse is the client-facing projection of an identity. Credentials
// never appear in it.
type userResponse struct {
	ID               string    `json:"id"`
	Handle           string    `json:"handle"`
	Email            string    `json:"email"`
	FullName         string    `json:"fullName"`
	Avatar           string    `json:"avatar"`
	CoverImage       string    `json:"coverImage"`
	WatchHistory     []string  `json:"watchHistory"`
	EmailVerified    bool      `json:"isEmailVerified"`
	ProfileCompleted bool      `json:"isProfileComplete"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func newUserResponse(u models.User) userResponse {
	history := u.WatchHistory
	if history == nil {
		history = []string{}
	}
	return userResponse{
		ID:               u.ID,
		Handle:           u.Handle,
		Email:            u.Email,
		FullName:         u.FullName,
		Avatar:           u.AvatarURL,
		CoverImage:       u.CoverURL,
		WatchHistory:     history,
		EmailVerified:    u.EmailVerified,
		ProfileCompleted: u.ProfileCompleted,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

// parseUpload reads a multipart body of at most maxUploadBytes.
func parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return apperr.Wrap(apperr.ErrInvalidArgument, "invalid multipart upload", err)
	}
	return nil
}

// stageUpload copies the file sent in field to dir. A missing field yields a
// nil file and no error.
func stageUpload(r *http.Request, dir, field string) (*storage.LocalFile, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInvalidArgument, "invalid "+field+" upload", err)
	}
	defer file.Close()

	staged, err := storage.Stage(dir, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", field, err)
	}
	return &staged, nil
}

func discardUpload(file *storage.LocalFile) {
	if file != nil {
		_ = storage.Discard(*file)
	}
}
