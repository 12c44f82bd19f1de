package search

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// memRoot is the start directory used for in-memory trees.
const memRoot = "/tree"

// collector is a Reporter that records every match.
type collector struct {
	mu      sync.Mutex
	paths   []string
	workers map[int]int
}

func newCollector() *collector {
	return &collector{workers: map[int]int{}}
}

func (c *collector) Report(workerID int, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
	c.workers[workerID]++
}

// sorted returns the reported paths in lexical order.
func (c *collector) sorted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]string(nil), c.paths...)
	sort.Strings(out)
	return out
}

// identity is a resolver that keeps in-memory paths as they are.
func identity(p string) (string, error) { return p, nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMemSearch builds a Search over fs with test-friendly defaults.
func newMemSearch(fs afero.Fs, target string, cfg Config, rep Reporter, opts ...Option) *Search {
	base := []Option{WithFs(fs), WithResolver(identity), WithLogger(quietLogger())}
	return New(target, cfg, rep, append(base, opts...)...)
}

// mustWrite creates a file (and its parents) below root.
func mustWrite(tb testing.TB, fs afero.Fs, root, rel string) string {
	tb.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		tb.Fatalf("mkdir %q: %v", filepath.Dir(p), err)
	}
	if err := afero.WriteFile(fs, p, []byte("x"), 0644); err != nil {
		tb.Fatalf("write %q: %v", p, err)
	}
	return p
}

// buildWideDeepTree creates a tree of the given depth where every directory
// has branch subdirectories and contains a file named name. It returns the
// sorted paths of every such file.
func buildWideDeepTree(tb testing.TB, fs afero.Fs, root, name string, depth, branch int) []string {
	tb.Helper()
	var want []string
	var build func(dir string, level int)
	build = func(dir string, level int) {
		want = append(want, mustWrite(tb, fs, dir, name))
		if level == depth {
			return
		}
		for i := 0; i < branch; i++ {
			build(filepath.Join(dir, fmt.Sprintf("d%d", i)), level+1)
		}
	}
	build(root, 0)
	sort.Strings(want)
	return want
}

// slowFs delays opening one directory to widen race windows between workers.
type slowFs struct {
	afero.Fs
	slow  string
	delay time.Duration
}

func (s slowFs) Open(name string) (afero.File, error) {
	if name == s.slow {
		time.Sleep(s.delay)
	}
	return s.Fs.Open(name)
}

func (s slowFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	return s.Fs.(afero.Lstater).LstatIfPossible(name)
}

// denyFs refuses to open one directory, like a directory without read
// permission.
type denyFs struct {
	afero.Fs
	denied string
}

func (d denyFs) Open(name string) (afero.File, error) {
	if name == d.denied {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.Open(name)
}

func (d denyFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	return d.Fs.(afero.Lstater).LstatIfPossible(name)
}

// lstatFs wraps a filesystem and forwards only Fs and Lstater.
type lstatFs struct {
	afero.Fs
}

func (l lstatFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	return l.Fs.(afero.Lstater).LstatIfPossible(name)
}
