package auth

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/videocave/backend/internal/apperr"
	"github.com/videocave/backend/internal/password"
	"github.com/videocave/backend/internal/storage"
)

const maxHandleLength = 30

var handlePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

var imageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.New(apperr.ErrInvalidArgument, "invalid email address")
	}
	return email, nil
}

func normalizeFullName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	n := len([]rune(name))
	if n < 3 || n > 50 {
		return "", apperr.New(apperr.ErrInvalidArgument, "full name must be between 3 and 50 characters")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' {
			return "", apperr.New(apperr.ErrInvalidArgument, "full name may only contain letters and spaces")
		}
	}
	return name, nil
}

func normalizeHandle(handle string) (string, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return "", apperr.New(apperr.ErrInvalidArgument, "handle is required")
	}
	if len(handle) > maxHandleLength {
		return "", apperr.New(apperr.ErrInvalidArgument, "handle must be at most 30 characters")
	}
	if !handlePattern.MatchString(handle) {
		return "", apperr.New(apperr.ErrInvalidArgument, "handle may only contain letters, digits and underscores")
	}
	return handle, nil
}

func checkPassword(plaintext string) error {
	if err := password.CheckStrength(plaintext); err != nil {
		return apperr.Wrap(apperr.ErrInvalidArgument, err.Error(), err)
	}
	return nil
}

func checkImage(file *storage.LocalFile, field string) error {
	if file == nil || strings.TrimSpace(file.Path) == "" {
		return apperr.New(apperr.ErrInvalidArgument, field+" file is required")
	}
	if _, ok := imageTypes[strings.ToLower(file.ContentType)]; !ok {
		return apperr.New(apperr.ErrInvalidArgument, field+" must be a jpeg, png or gif image")
	}
	return nil
}
