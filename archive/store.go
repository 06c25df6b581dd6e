package archive

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when an archive does not exist.
// It wraps os.ErrNotExist so errors.Is(err, os.ErrNotExist) also works.
var ErrNotFound = os.ErrNotExist

// Store persists named archives, typically dump streams produced by
// package dump. Names are slash-separated relative paths.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes the contents of r under name, replacing any existing
	// archive with the same name.
	Put(ctx context.Context, name string, r io.Reader) error

	// Open returns a reader for the named archive.
	// Returns ErrNotFound if the archive does not exist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// List returns the names of all archives whose name starts with
	// prefix, sorted lexicographically.
	List(ctx context.Context, prefix string) ([]string, error)

	// Remove deletes the named archive. Removing an archive that does
	// not exist is not an error.
	Remove(ctx context.Context, name string) error
}
