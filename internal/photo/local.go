package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps photos in one flat directory.
type LocalStore struct {
	Dir string
}

// NewLocal creates dir if needed and returns a store over it.
func NewLocal(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("photo: upload dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("photo: create %s: %w", dir, err)
	}
	return &LocalStore{Dir: dir}, nil
}

// Save writes r to Dir/ref.
func (s *LocalStore) Save(_ context.Context, ref string, r io.Reader, _ int64) error {
	if !validRef(ref) {
		return fmt.Errorf("photo: invalid reference %q", ref)
	}
	f, err := os.OpenFile(filepath.Join(s.Dir, ref), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("photo: create %s: %w", ref, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("photo: write %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("photo: close %s: %w", ref, err)
	}
	return nil
}

// Open returns the stored photo.
func (s *LocalStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.Dir, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("photo: open %s: %w", ref, err)
	}
	return f, nil
}

// Delete removes the stored photo. A missing photo is not an error.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	if !validRef(ref) {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("photo: remove %s: %w", ref, err)
	}
	return nil
}
