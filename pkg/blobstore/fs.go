// Package blobstore stores uploaded profile images outside the database and
// hands back the public path recorded on the user.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for files whose extension is not an
// accepted image type.
var ErrUnsupportedType = errors.New("only image files are allowed")

// ErrTooLarge is returned when an upload exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// allowed image extensions, matching what clients may upload
var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// Store saves uploaded blobs and returns the path they are served from.
type Store interface {
	Save(ctx context.Context, filename string, content io.Reader) (string, error)
}

type fsStore struct {
	dir      string
	maxBytes int64
}

// NewFSStore creates a filesystem-backed blob store rooted at dir. Files are
// renamed to random uuids so uploaded names never reach the filesystem.
func NewFSStore(dir string, maxBytes int64) (*fsStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &fsStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *fsStore) Save(_ context.Context, filename string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	// Read one byte past the limit so an exactly-full file still passes.
	n, err := io.Copy(dst, io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if n > s.maxBytes {
		_ = os.Remove(dst.Name())
		return "", ErrTooLarge
	}

	return "/uploads/" + name, nil
}
