// Package photo stores work order photos and hands back opaque references.
// A reference is the stored file name: 32 hex characters, an underscore and
// the sanitized original name.
package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/primefragrance/cmms/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a reference names no stored photo.
var ErrNotFound = errors.New("photo: not found")

// AllowedExtensions are the accepted photo file types.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif"}

// Store keeps photo bytes under a reference.
type Store interface {
	Save(ctx context.Context, ref string, r io.Reader, size int64) error
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// New returns the Store selected by cfg.Driver. Empty means local.
func New(cfg config.UploadsConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.Dir)
	case "minio":
		return NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("photo: unknown driver %q", cfg.Driver)
	}
}

// Allowed reports whether name carries an accepted extension.
func Allowed(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	ext := strings.ToLower(name[i+1:])
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Sanitize reduces an uploaded file name to a safe base name of ASCII
// letters, digits, dots, dashes and underscores.
func Sanitize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "._")
}

// Reference builds a unique reference for an original file name.
func Reference(original string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + Sanitize(original)
}

// validRef rejects references that could escape the store.
func validRef(ref string) bool {
	return ref != "" && ref != "." && ref != ".." && !strings.ContainsAny(ref, `/\`)
}

// SaveAll stores every allowed file and returns the references in upload
// order. Files with a missing name or a disallowed extension are skipped.
func SaveAll(ctx context.Context, s Store, files []*multipart.FileHeader, log *zap.Logger) ([]string, error) {
	refs := make([]string, 0, len(files))
	for _, fh := range files {
		if fh == nil || fh.Filename == "" || !Allowed(fh.Filename) {
			if fh != nil {
				log.Debug("photo skipped", zap.String("name", fh.Filename))
			}
			continue
		}
		ref := Reference(fh.Filename)
		f, err := fh.Open()
		if err != nil {
			return refs, fmt.Errorf("photo: open upload %s: %w", fh.Filename, err)
		}
		err = s.Save(ctx, ref, f, fh.Size)
		f.Close()
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
