package transport

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// maxLineLength caps a pending line; a longer run of bytes without a
// terminator is returned as is.
const maxLineLength = 4096

// lineReader splits a timeout-bounded byte stream into lines.
//
// bufio.Reader is not usable here: serial reads report a timeout as (0, nil),
// which bufio retries until it gives up with io.ErrNoProgress.
type lineReader struct {
	r     io.Reader
	buf   []byte
	chunk []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r:     r,
		buf:   make([]byte, 0, 256),
		chunk: make([]byte, 256),
	}
}

// readLine returns the next line including its "\n".
//
// When the underlying read times out, the pending bytes (possibly none) are
// returned with a nil error. Any other read error is returned as is.
func (lr *lineReader) readLine() ([]byte, error) {
	for {
		if i := bytes.IndexByte(lr.buf, '\n'); i >= 0 {
			return lr.take(i + 1), nil
		}
		if len(lr.buf) >= maxLineLength {
			return lr.take(len(lr.buf)), nil
		}

		n, err := lr.r.Read(lr.chunk)
		lr.buf = append(lr.buf, lr.chunk[:n]...)

		switch {
		case err != nil && isTimeout(err):
			return lr.take(len(lr.buf)), nil
		case err != nil:
			return nil, err
		case n == 0:
			// go.bug.st/serial reports an elapsed read timeout as (0, nil).
			return lr.take(len(lr.buf)), nil
		}
	}
}

// take removes and returns the first n pending bytes.
func (lr *lineReader) take(n int) []byte {
	line := make([]byte, n)
	copy(line, lr.buf[:n])
	lr.buf = append(lr.buf[:0], lr.buf[n:]...)

	return line
}

// discard drops the pending bytes.
func (lr *lineReader) discard() int {
	n := len(lr.buf)
	lr.buf = lr.buf[:0]

	return n
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }

	return errors.As(err, &te) && te.Timeout()
}
