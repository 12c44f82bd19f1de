package search

import (
	"fmt"
	"io"
	"sync"
)

// Reporter receives every match. Implementations must be safe for
// concurrent use by all workers.
type Reporter interface {
	Report(workerID int, path string)
}

// LineReporter writes one "Found by thread <id>: <path>" line per match.
// Each line is emitted with a single Write under a mutex, so lines from
// different workers never interleave. Pass an unbuffered writer (os.Stdout)
// to have every line visible immediately.
type LineReporter struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

// NewLineReporter returns a reporter writing to w.
func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{w: w}
}

// Report writes the match line. Write errors are ignored: a broken stdout
// must not stall the search.
func (r *LineReporter) Report(workerID int, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = fmt.Appendf(r.buf[:0], "Found by thread %d: %s\n", workerID, path)
	_, _ = r.w.Write(r.buf)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(workerID int, path string)

func (f ReporterFunc) Report(workerID int, path string) { f(workerID, path) }
