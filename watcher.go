package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kylesnowschwartz/claude-history/parser"
)

// watcherDebounce is the delay after the last log event before listeners
// are told to refresh. Claude Code appends several lines per turn; 500ms
// coalesces them into one re-read.
const watcherDebounce = 500 * time.Millisecond

// projectsWatcher watches the projects directory and every project folder
// in it for log changes, and signals listeners after a quiet period.
// Project folders created while running are picked up automatically.
//
// Timer callbacks only send on signals; every other field is touched by
// run() alone.
type projectsWatcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger

	signals chan struct{} // debounced refresh trigger; capacity 1
	done    chan struct{}

	mu     sync.Mutex // guards timer and closed
	timer  *time.Timer
	closed bool
	once   sync.Once
}

func newProjectsWatcher(root string, logger *slog.Logger) *projectsWatcher {
	return &projectsWatcher{
		root:     root,
		debounce: watcherDebounce,
		logger:   logger,
		signals:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// changes delivers one value per debounced burst of log activity. Closed
// when the watcher exits.
func (w *projectsWatcher) changes() <-chan struct{} { return w.signals }

// stop signals the watcher goroutine to exit and cancels a pending debounce.
func (w *projectsWatcher) stop() {
	w.once.Do(func() { close(w.done) })
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

// sendSignal does a non-blocking send. A pending signal already covers
// this change.
func (w *projectsWatcher) sendSignal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.signals <- struct{}{}:
	default:
	}
}

// schedule (re)starts the debounce timer.
func (w *projectsWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.sendSignal)
}

// run watches until stop is called. Intended to be called as a goroutine.
// Returns early, closing changes(), when the watcher cannot start.
func (w *projectsWatcher) run() {
	defer func() {
		w.mu.Lock()
		w.closed = true
		if w.timer != nil {
			w.timer.Stop()
		}
		close(w.signals)
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Error("cannot start file watcher", "error", err)
		return
	}
	defer fw.Close()

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		w.logger.Error("cannot create projects directory", "path", w.root, "error", err)
		return
	}
	if err := fw.Add(w.root); err != nil {
		w.logger.Error("cannot watch projects directory", "path", w.root, "error", err)
		return
	}
	entries, _ := os.ReadDir(w.root)
	for _, e := range entries {
		if e.IsDir() {
			w.add(fw, filepath.Join(w.root, e.Name()))
		}
	}

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handle(fw, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			// Transient; the next event still triggers a rescan.
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *projectsWatcher) handle(fw *fsnotify.Watcher, event fsnotify.Event) {
	// A new project folder: watch it, and treat it as a change since its
	// first log may already be inside.
	if filepath.Dir(event.Name) == w.root && event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.add(fw, event.Name)
			w.schedule()
			return
		}
	}
	if !strings.HasSuffix(event.Name, parser.LogExt) {
		// A project folder vanishing drops its logs.
		if filepath.Dir(event.Name) == w.root && event.Has(fsnotify.Remove) {
			w.schedule()
		}
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	w.schedule()
}

func (w *projectsWatcher) add(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil {
		w.logger.Warn("cannot watch project directory", "path", dir, "error", err)
	}
}
