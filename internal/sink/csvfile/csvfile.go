// Package csvfile is a row sink that writes RFC 4180 CSV to a local file.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Sink writes a header and rows as CSV. It is not safe for concurrent use.
type Sink struct {
	w       *csv.Writer
	c       io.Closer
	path    string
	written int64
}

// Create truncates or creates path and returns a Sink writing to it.
func Create(path string) (*Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv sink: create %s: %w", path, err)
	}
	return &Sink{w: csv.NewWriter(f), c: f, path: path}, nil
}

// New writes to w. Close flushes and closes w when it is an io.Closer.
func New(w io.Writer) *Sink {
	s := &Sink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// Path returns the file path, or "" for a Sink built with New.
func (s *Sink) Path() string { return s.path }

// Written returns the number of data rows written so far.
func (s *Sink) Written() int64 { return s.written }

func (s *Sink) WriteHeader(cols []string) error {
	return s.w.Write(cols)
}

func (s *Sink) WriteRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.written++
	return nil
}

// Close flushes buffered rows and closes the underlying file.
func (s *Sink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.c != nil {
		if cerr := s.c.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	return nil
}
