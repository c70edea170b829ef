// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when the inputs of a grouping run change.
//
// A Watcher follows dataset directories recursively and a set of individual
// files (the grouping configuration, a file list). Events are coalesced over
// a debounce window so the callback fires once with every changed path.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

var (
	// ErrNothingToWatch is returned when Config names no directory and no file.
	ErrNothingToWatch = errors.New("watch: nothing to watch")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")
)

// DefaultPatterns select the dataset files a grouping run reads.
var DefaultPatterns = []string{
	"**/*.nii",
	"**/*.nii.gz",
	"**/*.json",
	"**/*.tsv",
	"**/*.bval",
	"**/*.bvec",
}

// defaultIgnores are never watched: hidden entries, the dataset directories a
// scan skips, and editor swap files.
var defaultIgnores = []string{
	"**/.*",
	"**/.*/**",
	"derivatives/**",
	"sourcedata/**",
	"code/**",
	"**/*.swp",
	"**/*~",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Dirs are watched recursively. Events below them are filtered by
		// Patterns and Ignore, relative to the directory.
		Dirs []string
		// Files are watched individually, whatever Patterns say.
		Files []string
		// Patterns are doublestar globs selecting files below Dirs. Empty means
		// DefaultPatterns.
		Patterns []string
		// Ignore adds doublestar globs to the built-in ignores.
		Ignore []string
		// Debounce is the quiet period after the last event. Zero means DefaultDebounce.
		Debounce time.Duration
		// OnChange receives the sorted absolute paths that changed.
		OnChange func(ctx context.Context, changed []string) error
		// Logger defaults to slog.Default().
		Logger *slog.Logger
	}

	// Watcher monitors the configured paths. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		dirs     []string
		files    map[string]struct{}
		patterns []string
		ignores  []string
		debounce time.Duration
		logger   *slog.Logger
		started  atomic.Bool
	}
)

// New validates cfg and registers every directory to watch.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Dirs) == 0 && len(cfg.Files) == 0 {
		return nil, ErrNothingToWatch
	}

	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		files:    make(map[string]struct{}, len(cfg.Files)),
		patterns: patterns,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	for _, d := range cfg.Dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", d, err)
		}
		w.dirs = append(w.dirs, abs)
	}
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", f, err)
		}
		w.files[abs] = struct{}{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.register(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is canceled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire skips when a previous callback is still running and retries after
	// another debounce period so pending paths are not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous run still in progress, postponing")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("re-run failed", "error", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
				continue
			}
			var changed []string
			if evt.Has(fsnotify.Create) {
				changed = w.maybeAddDir(evt.Name)
			}
			if w.relevant(evt.Name) {
				changed = append(changed, evt.Name)
			}
			if len(changed) == 0 {
				continue
			}

			mu.Lock()
			for _, p := range changed {
				pending[p] = struct{}{}
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// register adds every non-ignored directory below Dirs, and the parent of
// every watched file.
func (w *Watcher) register() error {
	for _, root := range w.dirs {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				w.logger.Warn("skipping inaccessible path", "path", path, "error", walkErr)
				return nil //nolint:nilerr // unreadable subtrees are skipped, not fatal
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && w.ignoredDir(root, path) {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("watch: add directory %q: %w", path, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	for f := range w.files {
		if err := w.fsw.Add(filepath.Dir(f)); err != nil {
			return fmt.Errorf("watch: add directory of %q: %w", f, err)
		}
	}
	return nil
}

// maybeAddDir extends the watch to a directory tree created after startup.
// Files written into the tree before its directories were added raise no
// event, so the relevant ones found by the walk are returned as changed.
func (w *Watcher) maybeAddDir(path string) []string {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil
	}
	root, ok := w.rootOf(path)
	if !ok || w.ignoredDir(root, path) {
		return nil
	}

	var found []string
	_ = filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", p, "error", walkErr)
			return nil //nolint:nilerr // unreadable subtrees are skipped, not fatal
		}
		if !d.IsDir() {
			if w.relevant(p) {
				found = append(found, p)
			}
			return nil
		}
		if p != path && w.ignoredDir(root, p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			w.logger.Warn("add new directory", "path", p, "error", err)
		}
		return nil
	})
	return found
}

// relevant reports whether a change to path should trigger a re-run.
func (w *Watcher) relevant(path string) bool {
	if _, ok := w.files[path]; ok {
		return true
	}
	root, ok := w.rootOf(path)
	if !ok {
		return false
	}
	rel := relSlash(root, path)
	return !w.matchAny(w.ignores, rel) && w.matchAny(w.patterns, rel)
}

// rootOf returns the watched directory containing path.
func (w *Watcher) rootOf(path string) (string, bool) {
	for _, root := range w.dirs {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

func (w *Watcher) ignoredDir(root, path string) bool {
	rel := relSlash(root, path)
	return w.matchAny(w.ignores, rel) || w.matchAny(w.ignores, rel+"/")
}

func (w *Watcher) matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func validatePatterns(patterns []string, kind string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("watch: invalid %s pattern %q", kind, p)
		}
	}
	return nil
}
