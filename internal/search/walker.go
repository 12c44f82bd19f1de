package search

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Realpath returns the absolute form of path with every symlink resolved.
func Realpath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// walk lists one directory, pushes its subdirectories and reports matching
// files. Every failure is contained here: an unreadable directory or entry
// is reported and skipped, never propagated to the worker loop.
func (r *run) walk(ctx context.Context, id int, dir string) {
	f, err := r.fs.Open(dir)
	if err != nil {
		r.fail(dir, "open", err)
		return
	}
	names, err := f.Readdirnames(-1)
	f.Close()
	if err != nil {
		r.fail(dir, "readdir", err)
		if len(names) == 0 {
			return
		}
		// Keep whatever was read before the error.
	}
	r.progress.DirsScanned.Add(1)

	for _, name := range names {
		if name == "." || name == ".." {
			continue
		}
		r.progress.EntriesSeen.Add(1)

		child := filepath.Join(dir, name)
		info, err := r.lstat(child)
		if err != nil {
			r.fail(child, "lstat", err)
			continue
		}

		switch mode := info.Mode(); {
		case mode.IsDir():
			r.enqueue(ctx, id, child)
		case mode.IsRegular() && name == r.target:
			r.match(id, child)
		}
	}
}

// lstat stats path without following a trailing symlink. Filesystems that
// report no lstat support (MemMapFs) have no symlinks to follow.
func (r *run) lstat(path string) (os.FileInfo, error) {
	info, _, err := r.lstater.LstatIfPossible(path)
	return info, err
}

func (r *run) match(id int, path string) {
	abs, err := r.resolve(path)
	if err != nil {
		r.fail(path, "resolve", err)
		abs = path
	}
	r.progress.Matches.Add(1)
	r.reporter.Report(id, abs)
}

// enqueue pushes dir for any worker to pick up. Against a full bounded queue
// it retries with exponential backoff, then scans dir on this worker. The
// caller is still counted active throughout, so no directory is ever dropped
// and termination cannot be declared underneath it.
func (r *run) enqueue(ctx context.Context, id int, dir string) {
	if r.queue.Push(dir) {
		return
	}
	r.progress.PushRetries.Add(1)

	if r.cfg.PushRetries > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = r.cfg.pushInterval()
		b.MaxInterval = 100 * b.InitialInterval

		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			if r.queue.Push(dir) {
				return struct{}{}, nil
			}
			return struct{}{}, ErrQueueFull
		},
			backoff.WithBackOff(b),
			backoff.WithMaxTries(r.cfg.PushRetries),
			backoff.WithNotify(func(error, time.Duration) {
				r.progress.PushRetries.Add(1)
			}),
		)
		if err == nil {
			return
		}
	}
	if ctx.Err() != nil {
		// The run is being abandoned; the subtree is not needed.
		return
	}

	r.log.Debug("queue full, scanning inline", "dir", dir, "worker", id)
	r.progress.InlineWalks.Add(1)
	r.walk(ctx, id, dir)
}

func (r *run) fail(path, stage string, err error) {
	r.progress.Errors.Add(1)
	if r.onError != nil {
		r.onError(path, stage, err)
		return
	}
	r.log.Debug("skipped", "path", path, "stage", stage, "error", err)
}
