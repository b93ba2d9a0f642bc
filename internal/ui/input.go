package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrNoInput is returned when a prompt needs an answer but stdin is
// exhausted. It wraps io.EOF.
var ErrNoInput = fmt.Errorf("no answer on stdin: %w", io.EOF)

// eofReader remembers whether the underlying reader has reached EOF.
type eofReader struct {
	mu  sync.Mutex
	r   io.Reader
	eof bool
}

func newEOFReader(r io.Reader) *eofReader {
	if r == nil {
		r = os.Stdin
	}
	return &eofReader{r: r}
}

func (e *eofReader) Read(p []byte) (int, error) {
	e.mu.Lock()
	done := e.eof
	e.mu.Unlock()
	if done {
		return 0, io.EOF
	}
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.mu.Lock()
		e.eof = true
		e.mu.Unlock()
	}
	return n, err
}

func (e *eofReader) exhausted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eof
}
