// Package storage keeps uploaded attachments on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"saraban/internal/apperr"
)

const DefaultMaxBytes int64 = 10 << 20

// Saved describes a stored file.
type Saved struct {
	Name        string
	PublicPath  string
	ContentType string
	Size        int64
}

type Local struct {
	dir          string
	publicPrefix string
	maxBytes     int64
	now          func() time.Time
}

func NewLocal(dir, publicPrefix string, maxBytes int64) (*Local, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{
		dir:          dir,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
		maxBytes:     maxBytes,
		now:          time.Now,
	}, nil
}

func (l *Local) Dir() string          { return l.dir }
func (l *Local) PublicPrefix() string { return l.publicPrefix }
func (l *Local) MaxBytes() int64      { return l.maxBytes }

// Save copies r into a freshly named file. Content over the size ceiling
// is discarded and apperr.ErrFileTooLarge returned.
func (l *Local) Save(originalName, contentType string, r io.Reader) (*Saved, error) {
	name := l.fileName(originalName)
	full := filepath.Join(l.dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	n, err := io.Copy(f, io.LimitReader(r, l.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > l.maxBytes {
		err = apperr.ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return nil, err
	}

	return &Saved{
		Name:        name,
		PublicPath:  path.Join(l.publicPrefix, name),
		ContentType: contentType,
		Size:        n,
	}, nil
}

// Remove deletes a file returned by Save. A missing file is not an error.
func (l *Local) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("remove %q: not a stored file name", name)
	}
	if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// fileName builds file-<unix millis>-<random>.<ext>.
func (l *Local) fileName(originalName string) string {
	random := uuid.New().ID() % 1_000_000_000
	return fmt.Sprintf("file-%d-%d%s", l.now().UnixMilli(), random, extension(originalName))
}

func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
