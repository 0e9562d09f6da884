package file

import (
	"bufio"
	"io"

	"github.com/zeebo/xxh3"
)

// maxLineBytes bounds a single record line. Public-use mortality records
// are under 500 bytes; the limit only guards against binary input.
const maxLineBytes = 1 << 20

// LineReader yields the lines of a stream in order, without trimming
// anything but the line terminator ("\n" or "\r\n"). It also keeps an xxh3
// digest and byte count of everything it has read, so callers can tell
// whether two passes saw the same input.
type LineReader struct {
	*bufio.Scanner
	rc    io.Closer
	h     *xxh3.Hasher
	count *countingReader
}

// NewLineReader wraps rc. Closing the LineReader closes rc.
func NewLineReader(rc io.ReadCloser) *LineReader {
	h := xxh3.New()
	cr := &countingReader{r: io.TeeReader(rc, h)}
	s := bufio.NewScanner(cr)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &LineReader{Scanner: s, rc: rc, h: h, count: cr}
}

// Digest returns the xxh3 hash of the bytes read so far. After Scan has
// returned false without error it covers the whole input.
func (l *LineReader) Digest() uint64 { return l.h.Sum64() }

// BytesRead returns how many bytes have been consumed from the stream.
func (l *LineReader) BytesRead() int64 { return l.count.n }

func (l *LineReader) Close() error { return l.rc.Close() }

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
