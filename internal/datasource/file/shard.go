package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

// Section is a byte range of a file that starts at the beginning of a line
// and ends just after a newline (or at EOF).
type Section struct {
	Offset int64
	Length int64
}

// probeSize is how far Split reads past a tentative boundary looking for the
// next newline.
const probeSize = 4096

// Split cuts the file into at most n newline-aligned sections of roughly
// equal size. Concatenating the sections yields the file exactly, so the
// lines of all sections are the lines of the file. Empty sections are
// dropped; an empty file yields no sections.
func (l *Local) Split(n int) ([]Section, error) {
	if n < 1 {
		n = 1
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	size := st.Size()

	var (
		out   []Section
		start int64
		buf   = make([]byte, probeSize)
	)
	for i := 1; i < n && start < size; i++ {
		target := size * int64(i) / int64(n)
		if target <= start {
			continue
		}
		end, err := nextLineStart(f, target, size, buf)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", l.path, err)
		}
		if end > start {
			out = append(out, Section{Offset: start, Length: end - start})
			start = end
		}
	}
	if start < size {
		out = append(out, Section{Offset: start, Length: size - start})
	}
	return out, nil
}

// nextLineStart returns the offset just after the first newline at or after
// pos-1, so a boundary that already sits on a line start is kept.
func nextLineStart(r io.ReaderAt, pos, size int64, buf []byte) (int64, error) {
	at := pos - 1
	for at < size {
		n, err := r.ReadAt(buf, at)
		if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
			return at + int64(i) + 1, nil
		}
		if err == io.EOF {
			return size, nil
		}
		if err != nil {
			return 0, err
		}
		at += int64(n)
	}
	return size, nil
}

// OpenSection opens a private handle on the file limited to sec.
func (l *Local) OpenSection(ctx context.Context, sec Section) (*LineReader, error) {
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
	return NewLineReader(sectionCloser{
		Reader: io.NewSectionReader(f, sec.Offset, sec.Length),
		Closer: f,
	}), nil
}

type sectionCloser struct {
	io.Reader
	io.Closer
}
