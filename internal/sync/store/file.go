package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/farhanfatur/Attendance-App/internal/errors"
)

// FileKV stores each key as a file in a directory. Writes go to a temp
// file that is renamed over the target, so a crash leaves either the old
// or the new contents.
type FileKV struct {
	dir string
}

// NewFileKV creates the directory if needed and returns a FileKV rooted there.
func NewFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to create queue directory", err)
	}
	return &FileKV{dir: dir}, nil
}

func (f *FileKV) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(f.dir, safe+".json")
}

// Get reads the file for key.
func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read "+key, err)
	}
	return data, nil
}

// Set atomically replaces the file for key.
func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	target := f.path(key)

	tmp, err := os.CreateTemp(f.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		cleanup()
		return apperrors.Wrap(apperrors.ErrStorage, "failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return apperrors.Wrap(apperrors.ErrStorage, "failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return apperrors.Wrap(apperrors.ErrStorage, "failed to close temp file", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return apperrors.Wrap(apperrors.ErrStorage, fmt.Sprintf("failed to replace %s", target), err)
	}
	return nil
}

// Move renames the file for from to the file for to. A missing file is not
// an error.
func (f *FileKV) Move(_ context.Context, from, to string) error {
	err := os.Rename(f.path(from), f.path(to))
	if err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to move "+from, err)
	}
	return nil
}
