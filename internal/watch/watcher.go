// Package watch polls a source tree and reports batches of changed files.
package watch

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vango-dev/bundler/internal/pathmatch"
)

// Op is the kind of change seen for a file.
type Op int

const (
	Created Op = iota
	Modified
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is a detected file change. Path is the logical path relative to
// the watched root.
type Change struct {
	Path string
	Op   Op
}

// Config configures the watcher.
type Config struct {
	// Root is the directory to watch.
	Root string

	// Ignore are glob patterns over logical paths. A directory that
	// matches is skipped entirely.
	Ignore []string

	// Interval is the polling interval.
	Interval time.Duration

	// Quiet is how long the tree must be unchanged before a batch is
	// reported, so an editor's burst of writes triggers one rebuild.
	Quiet time.Duration
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"**/*.tmp",
	"**/*.swp",
	"**/*~",
	"**/.DS_Store",
}

type stamp struct {
	mod  time.Time
	size int64
}

// Watcher monitors a tree for changes.
type Watcher struct {
	config   Config
	onChange func([]Change)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	ignore  []string
	retired []string // patterns replaced since the last poll
	stamps  map[string]stamp
	pending map[string]Op
	lastHit time.Time
}

// New creates a watcher.
func New(config Config) *Watcher {
	if config.Interval == 0 {
		config.Interval = 200 * time.Millisecond
	}
	if config.Quiet == 0 {
		config.Quiet = 2 * config.Interval
	}
	if config.Ignore == nil {
		config.Ignore = DefaultIgnore
	}
	return &Watcher{
		config:  config,
		ignore:  config.Ignore,
		stamps:  make(map[string]stamp),
		pending: make(map[string]Op),
	}
}

// OnChange sets the callback for change batches. Batches are sorted by
// path and never overlap.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// SetIgnore replaces the ignore patterns from the next poll on. Paths
// that only appear or disappear because of the new patterns are not
// reported as changes.
func (w *Watcher) SetIgnore(patterns []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.retired == nil {
		w.retired = w.ignore
	}
	w.ignore = append([]string(nil), patterns...)
}

// Start polls until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.stamps = w.scan(w.patterns())

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case now := <-ticker.C:
			w.poll(now)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// poll diffs the tree against the last scan and flushes the pending batch
// once the tree has been quiet long enough.
func (w *Watcher) poll(now time.Time) {
	w.mu.Lock()
	ignore, retired := w.ignore, w.retired
	w.retired = nil
	w.mu.Unlock()

	current := w.scan(ignore)
	changed := diff(w.stamps, current)
	if retired != nil {
		changed = rescoped(changed, retired, ignore)
	}
	w.stamps = current

	w.mu.Lock()
	for _, c := range changed {
		if prev, ok := w.pending[c.Path]; ok && prev == Created && c.Op == Modified {
			continue
		}
		w.pending[c.Path] = c.Op
	}
	if len(changed) > 0 {
		w.lastHit = now
	}
	if len(w.pending) == 0 || now.Sub(w.lastHit) < w.config.Quiet {
		w.mu.Unlock()
		return
	}
	batch := make([]Change, 0, len(w.pending))
	for p, op := range w.pending {
		batch = append(batch, Change{Path: p, Op: op})
	}
	w.pending = make(map[string]Op)
	callback := w.onChange
	w.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	if callback != nil {
		callback(batch)
	}
}

func (w *Watcher) patterns() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ignore
}

func (w *Watcher) scan(ignore []string) map[string]stamp {
	out := make(map[string]stamp)
	filepath.WalkDir(w.config.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.config.Root, p)
		if err != nil || rel == "." {
			return nil
		}
		logical := pathmatch.Normalize(rel)
		if matchAny(ignore, logical) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out[logical] = stamp{mod: info.ModTime(), size: info.Size()}
		return nil
	})
	return out
}

func diff(before, after map[string]stamp) []Change {
	var out []Change
	for p, s := range after {
		old, ok := before[p]
		switch {
		case !ok:
			out = append(out, Change{Path: p, Op: Created})
		case !s.mod.Equal(old.mod) || s.size != old.size:
			out = append(out, Change{Path: p, Op: Modified})
		}
	}
	for p := range before {
		if _, ok := after[p]; !ok {
			out = append(out, Change{Path: p, Op: Removed})
		}
	}
	return out
}

// rescoped drops changes caused by swapping the old ignore patterns for
// the new ones: files that were hidden before and files that are hidden
// now.
func rescoped(changes []Change, old, current []string) []Change {
	out := changes[:0]
	for _, c := range changes {
		switch {
		case c.Op == Created && hidden(old, c.Path):
		case c.Op == Removed && hidden(current, c.Path):
		default:
			out = append(out, c)
		}
	}
	return out
}

// hidden reports whether a scan with patterns skips logical, either
// directly or through one of its parent directories.
func hidden(patterns []string, logical string) bool {
	for p := logical; p != "." && p != ""; p = path.Dir(p) {
		if matchAny(patterns, p) {
			return true
		}
	}
	return false
}

// matchAny checks if a logical path matches one of the patterns.
func matchAny(patterns []string, logical string) bool {
	for _, pattern := range patterns {
		if pathmatch.MustMatch(pattern, logical) {
			return true
		}
	}
	return false
}
