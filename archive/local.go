package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidName is returned for empty names or names that escape the
// store root.
var ErrInvalidName = errors.New("invalid archive name")

// Local implements Store using the local file system. Archives are
// written to a temporary file and renamed into place, so readers never
// observe a partially written archive.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal creates a local archive store rooted at the given directory.
// The directory is created on the first Put.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// Root returns the root directory of the store.
func (s *Local) Root() string {
	return s.root
}

func (s *Local) path(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put writes the contents of r under name atomically.
func (s *Local) Put(ctx context.Context, name string, r io.Reader) error {
	dst, err := s.path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".archive-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}

	name2 := tmp.Name()
	tmp = nil
	if err := os.Rename(name2, dst); err != nil {
		_ = os.Remove(name2)
		return fmt.Errorf("failed to rename archive into place: %w", err)
	}
	return nil
}

// Open returns a reader for the named archive.
func (s *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		// os.Open already returns os.ErrNotExist, which is ErrNotFound.
		return nil, err
	}
	return f, nil
}

// List returns the names of all archives under the root whose name
// starts with prefix, sorted lexicographically.
func (s *Local) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Remove deletes the named archive.
func (s *Local) Remove(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove archive: %w", err)
	}
	return nil
}
