// Package watcher turns filesystem notifications under a directory into
// metadata records.
package watcher

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/openmined/syftmirror/internal/scanner"
	"github.com/openmined/syftmirror/internal/update"
	"github.com/rjeczalik/notify"
)

const (
	eventBufferSize        = 64
	updateBufferSize       = 256
	defaultDebounceTimeout = 50 * time.Millisecond
)

// FilterCallback returns true if events for the relative path should be
// dropped.
type FilterCallback func(relPath string) bool

type Watcher struct {
	watchDir  string
	updates   chan *update.Update
	rawEvents chan notify.EventInfo
	done      chan struct{}
	wg        sync.WaitGroup
	// debouncing
	pending         map[string]*time.Timer
	deferred        map[string][]string
	debounceMu      sync.Mutex
	debounceTimeout time.Duration
	// raw event filtering
	ignoreCallback FilterCallback
	callbackMu     sync.RWMutex
}

func New(watchDir string) *Watcher {
	return &Watcher{
		watchDir:        watchDir,
		done:            make(chan struct{}),
		pending:         make(map[string]*time.Timer),
		deferred:        make(map[string][]string),
		debounceTimeout: defaultDebounceTimeout,
	}
}

// SetDebounceTimeout sets how long a path must stay quiet before its record
// is emitted.
func (w *Watcher) SetDebounceTimeout(timeout time.Duration) {
	w.debounceTimeout = timeout
}

// FilterPaths sets a callback to drop events before debouncing.
func (w *Watcher) FilterPaths(callback FilterCallback) {
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.ignoreCallback = callback
}

func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("watcher start", "dir", w.watchDir)

	w.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	w.updates = make(chan *update.Update, updateBufferSize)

	if err := notify.Watch(filepath.Join(w.watchDir, "..."), w.rawEvents, notify.All); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.filterEvents(ctx)

	return nil
}

func (w *Watcher) Stop() {
	slog.Info("watcher stopping", "dir", w.watchDir)

	close(w.done)
	if w.rawEvents != nil {
		notify.Stop(w.rawEvents)
	}
	w.wg.Wait()

	w.debounceMu.Lock()
	for relPath, timer := range w.pending {
		timer.Stop()
		delete(w.pending, relPath)
	}
	clear(w.deferred)
	w.debounceMu.Unlock()

	slog.Info("watcher stopped", "dir", w.watchDir)
}

// Updates returns the channel of records for changed paths. A directory
// is always emitted before the entries under it that changed in the same
// quiet period.
func (w *Watcher) Updates() <-chan *update.Update {
	return w.updates
}

func (w *Watcher) filterEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.rawEvents:
			if !ok {
				return
			}
			relPath, ok := w.relPath(event.Path())
			if !ok {
				continue
			}

			w.callbackMu.RLock()
			cb := w.ignoreCallback
			w.callbackMu.RUnlock()
			if cb != nil && cb(relPath) {
				continue
			}

			w.debounce(ctx, relPath)
		}
	}
}

func (w *Watcher) relPath(absPath string) (string, bool) {
	rel, err := filepath.Rel(w.watchDir, absPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// debounce restarts the quiet period of relPath. Editors and inotify emit
// bursts of events for a single write. Paths under a pending directory wait
// for it and are emitted by its flush.
func (w *Watcher) debounce(ctx context.Context, relPath string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if ancestor, ok := w.pendingAncestor(relPath); ok {
		w.deferChild(ancestor, relPath)
		return
	}

	prefix := relPath + "/"
	for pendingPath, timer := range w.pending {
		if !strings.HasPrefix(pendingPath, prefix) {
			continue
		}
		// a timer that already fired is flushing on its own
		if !timer.Stop() {
			continue
		}
		delete(w.pending, pendingPath)
		w.deferChild(relPath, pendingPath)
		for _, child := range w.deferred[pendingPath] {
			w.deferChild(relPath, child)
		}
		delete(w.deferred, pendingPath)
	}

	if timer, exists := w.pending[relPath]; exists {
		timer.Stop()
	}
	w.pending[relPath] = time.AfterFunc(w.debounceTimeout, func() {
		w.flush(ctx, relPath)
	})
}

// pendingAncestor returns the closest directory of relPath with a running
// timer. Callers hold debounceMu.
func (w *Watcher) pendingAncestor(relPath string) (string, bool) {
	for dir := path.Dir(relPath); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, ok := w.pending[dir]; ok {
			return dir, true
		}
	}
	return "", false
}

func (w *Watcher) deferChild(ancestor, relPath string) {
	if !slices.Contains(w.deferred[ancestor], relPath) {
		w.deferred[ancestor] = append(w.deferred[ancestor], relPath)
	}
}

func (w *Watcher) flush(ctx context.Context, relPath string) {
	w.debounceMu.Lock()
	delete(w.pending, relPath)
	children := w.deferred[relPath]
	delete(w.deferred, relPath)
	w.debounceMu.Unlock()

	u, err := scanner.UpdateFor(w.watchDir, relPath)
	if err != nil {
		slog.Warn("watcher stat failed", "path", relPath, "error", err)
		return
	}
	w.send(u)

	sent := make(map[string]struct{})
	// a new directory may already hold entries we got no events for
	if u.Directory && !u.Delete {
		err := scanner.Walk(ctx, w.watchDir, relPath, func(child *update.Update) error {
			if child.Path != relPath {
				sent[child.Path] = struct{}{}
				w.send(child)
			}
			return nil
		})
		if err != nil {
			slog.Warn("watcher walk failed", "path", relPath, "error", err)
		}
	}

	// deferred paths the walk did not reach are gone; prefixes sort first
	slices.Sort(children)
	for _, child := range children {
		if _, ok := sent[child]; ok {
			continue
		}
		cu, err := scanner.UpdateFor(w.watchDir, child)
		if err != nil {
			slog.Warn("watcher stat failed", "path", child, "error", err)
			continue
		}
		w.send(cu)
	}
}

func (w *Watcher) send(u *update.Update) {
	select {
	case <-w.done:
	case w.updates <- u:
		slog.Debug("watcher", "path", u.Path, "delete", u.Delete)
	}
}
