// Package file implements the local filesystem record source: a single-pass
// line reader with a running input digest, and newline-aligned shards for
// scanning one file from several goroutines.
package file

import (
	"context"
	"fmt"
	"io"
	"os"

	"mortstat/internal/datasource"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

var _ datasource.Source = (*Local)(nil)

// NewLocal returns a new Local data source bound to the provided filesystem
// path. The returned value is safe for concurrent use; every Open returns a
// private *os.File.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// Behavior:
//   - If the context is already canceled, Open returns the context error
//     without touching the filesystem.
//   - Filesystem errors are wrapped with the path and still match
//     errors.Is(err, os.ErrNotExist) and friends.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}

// Lines opens the file as a LineReader over its whole content.
func (l *Local) Lines(ctx context.Context) (*LineReader, error) {
	rc, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	return NewLineReader(rc), nil
}
