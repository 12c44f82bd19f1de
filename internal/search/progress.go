package search

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Progress holds live counters updated by the workers.
// All fields are atomic so they can be written from worker goroutines and
// read by the caller while a search runs.
type Progress struct {
	DirsScanned atomic.Int64 // directories whose entries were read
	EntriesSeen atomic.Int64 // directory entries examined
	Matches     atomic.Int64 // files reported
	Errors      atomic.Int64 // skipped directories and entries
	InlineWalks atomic.Int64 // subdirectories scanned in place because the queue was full
	PushRetries atomic.Int64 // failed pushes against a bounded queue
}

// Summary is a point-in-time copy of Progress plus the run duration.
type Summary struct {
	DirsScanned int64
	EntriesSeen int64
	Matches     int64
	Errors      int64
	InlineWalks int64
	PushRetries int64
	Elapsed     time.Duration
}

// Snapshot copies the counters.
func (p *Progress) Snapshot(elapsed time.Duration) Summary {
	return Summary{
		DirsScanned: p.DirsScanned.Load(),
		EntriesSeen: p.EntriesSeen.Load(),
		Matches:     p.Matches.Load(),
		Errors:      p.Errors.Load(),
		InlineWalks: p.InlineWalks.Load(),
		PushRetries: p.PushRetries.Load(),
		Elapsed:     elapsed,
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("scanned %s dirs, %s entries, %s matches, %s errors in %.2fs",
		humanize.Comma(s.DirsScanned),
		humanize.Comma(s.EntriesSeen),
		humanize.Comma(s.Matches),
		humanize.Comma(s.Errors),
		s.Elapsed.Seconds())
}

// ErrorReporter records a recoverable per-directory or per-entry failure.
// stage names the operation that failed ("open", "readdir", "lstat", "resolve").
type ErrorReporter func(path, stage string, err error)
