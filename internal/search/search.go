// Package search implements a parallel filename search over a directory tree.
//
// A fixed pool of workers shares one WorkQueue of directories. Each worker
// acquires a directory, lists it, pushes subdirectories back onto the queue
// and reports regular files whose name equals the target. The search ends
// when a worker releasing its directory observes an empty queue and no other
// active worker.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
)

// ErrInvalidWorkers is returned by Run when the worker count is below one.
var ErrInvalidWorkers = errors.New("worker count must be at least 1")

// ErrStopped is returned by Run when the queue was stopped before the tree
// was exhausted.
var ErrStopped = errors.New("search stopped before completion")

// ErrNoLstat is returned by Run when the filesystem cannot stat an entry
// without following symlinks.
var ErrNoLstat = errors.New("filesystem does not implement afero.Lstater")

// Config holds search concurrency tuning parameters.
type Config struct {
	Workers       int
	QueueCapacity int           // 0 means unbounded
	PushRetries   uint          // tries against a full bounded queue before scanning inline
	PushBackoff   time.Duration // initial retry interval; <= 0 uses the default
}

// pushInterval returns the initial backoff between pushes against a full
// queue, never zero.
func (c Config) pushInterval() time.Duration {
	if c.PushBackoff <= 0 {
		return DefaultConfig().PushBackoff
	}
	return c.PushBackoff
}

// DefaultConfig returns the fixed worker policy: eight workers over an
// unbounded queue.
func DefaultConfig() Config {
	return Config{
		Workers:       8,
		QueueCapacity: 0,
		PushRetries:   5,
		PushBackoff:   time.Millisecond,
	}
}

// Search holds everything one search needs. It has no package-level state,
// so independent searches can run side by side in one process.
type Search struct {
	fs       afero.Fs
	target   string
	cfg      Config
	reporter Reporter
	logger   *slog.Logger
	onError  ErrorReporter
	resolve  func(string) (string, error)
}

// Option customises a Search.
type Option func(*Search)

// WithFs replaces the filesystem (afero.NewOsFs by default). The filesystem
// must implement afero.Lstater; Run refuses one that does not.
func WithFs(fs afero.Fs) Option {
	return func(s *Search) { s.fs = fs }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Search) { s.logger = l }
}

// WithErrorReporter installs a callback for recoverable failures.
func WithErrorReporter(fn ErrorReporter) Option {
	return func(s *Search) { s.onError = fn }
}

// WithResolver replaces the function used to turn a match into an absolute
// path (Realpath by default).
func WithResolver(fn func(string) (string, error)) Option {
	return func(s *Search) { s.resolve = fn }
}

// New creates a Search for files named target.
func New(target string, cfg Config, reporter Reporter, opts ...Option) *Search {
	s := &Search{
		fs:       afero.NewOsFs(),
		target:   target,
		cfg:      cfg,
		reporter: reporter,
		logger:   slog.Default(),
		resolve:  Realpath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run searches the tree below start and blocks until every worker has
// exited. Matches go to the Reporter as they are found. progress may be nil;
// when given it is updated live and can be read concurrently.
//
// Run returns an error when the configuration is invalid, a worker panicked,
// or ctx was cancelled before the tree was exhausted.
func (s *Search) Run(ctx context.Context, start string, progress *Progress) (Summary, error) {
	if s.cfg.Workers < 1 {
		return Summary{}, fmt.Errorf("%w: got %d", ErrInvalidWorkers, s.cfg.Workers)
	}
	lstater, ok := s.fs.(afero.Lstater)
	if !ok {
		return Summary{}, fmt.Errorf("%w: %T", ErrNoLstat, s.fs)
	}
	if progress == nil {
		progress = &Progress{}
	}

	r := &run{
		Search:   s,
		queue:    NewWorkQueue(s.cfg.QueueCapacity),
		lstater:  lstater,
		progress: progress,
		log:      s.logger.With("run", uuid.NewString()),
	}
	startedAt := time.Now()
	r.log.Info("search started",
		"start", start,
		"target", s.target,
		"workers", s.cfg.Workers,
		"queue_capacity", s.cfg.QueueCapacity)

	// Seed before any worker starts; a fresh queue always has room.
	r.queue.Push(start)

	stopOnCancel := context.AfterFunc(ctx, r.queue.Stop)
	defer stopOnCancel()

	var wg conc.WaitGroup
	for id := 1; id <= s.cfg.Workers; id++ {
		wg.Go(func() {
			finished := false
			defer func() {
				// A panicking worker may still be counted active; stop the
				// queue so its siblings do not wait forever.
				if !finished {
					r.queue.Stop()
				}
			}()
			r.work(ctx, id)
			finished = true
		})
	}
	recovered := wg.WaitAndRecover()

	summary := progress.Snapshot(time.Since(startedAt))
	if recovered != nil {
		r.log.Error("search worker panicked", "error", recovered.Value)
		return summary, fmt.Errorf("search worker: %w", recovered.AsError())
	}
	if !r.queue.Terminated() {
		err := ctx.Err()
		if err == nil {
			err = ErrStopped
		}
		r.log.Warn("search interrupted", "summary", summary.String())
		return summary, fmt.Errorf("search interrupted: %w", err)
	}

	r.log.Info("search finished", "summary", summary.String())
	return summary, nil
}

// run is the per-call state shared by the workers of one Run.
type run struct {
	*Search
	queue    *WorkQueue
	lstater  afero.Lstater
	progress *Progress
	log      *slog.Logger
}

// work is the worker loop: Idle in Acquire, Active while walking, and
// Terminated once Acquire fails or this worker declared termination.
func (r *run) work(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			r.queue.Stop()
			return
		}
		dir, ok := r.queue.Acquire()
		if !ok {
			return
		}
		r.walk(ctx, id, dir)
		if r.queue.Release() {
			r.log.Debug("termination declared", "worker", id)
			return
		}
	}
}
