package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalFile is an upload staged on local disk. The asset store removes it
// once it has been consumed, whether or not the upload succeeded.
type LocalFile struct {
	Path        string
	Filename    string
	ContentType string
}

// Stage copies r into a new temp file under dir and returns it.
func Stage(dir, filename, contentType string, r io.Reader) (LocalFile, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	pattern := "upload-*" + strings.ToLower(filepath.Ext(filename))
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return LocalFile{}, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return LocalFile{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return LocalFile{}, fmt.Errorf("close temp file: %w", err)
	}

	return LocalFile{Path: f.Name(), Filename: filename, ContentType: contentType}, nil
}

// Discard removes the staged file. Missing files are not an error.
func Discard(file LocalFile) error {
	if file.Path == "" {
		return nil
	}
	if err := os.Remove(file.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove temp file %s: %w", file.Path, err)
	}
	return nil
}
