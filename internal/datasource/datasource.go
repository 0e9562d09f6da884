// Package datasource defines how the pipeline obtains raw record bytes.
package datasource

import (
	"context"
	"io"
)

// Source opens the raw byte stream of a record file. Each call returns an
// independent reader, so concurrent passes never share a file handle.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
