package hotreload

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/leslieo2/heartbeat-server/internal/observability"
)

// Watcher reports changes to a set of files. It watches each file's parent
// directory so editors that replace the file by rename are still seen.
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     *observability.Logger
	files      map[string]struct{}
	dirs       map[string]int
	events     chan Event
	done       chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	isWatching bool
	stopped    bool
}

// Event represents a change to a watched file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

func NewWatcher(logger *observability.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return &Watcher{
		watcher: fsWatcher,
		logger:  logger,
		files:   make(map[string]struct{}),
		dirs:    make(map[string]int),
		events:  make(chan Event, 100),
		done:    make(chan struct{}),
	}, nil
}

// Add starts watching the file at path.
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, ok := w.files[absPath]; ok {
		return nil
	}

	dir := filepath.Dir(absPath)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to add path %s: %w", absPath, err)
		}
	}
	w.dirs[dir]++
	w.files[absPath] = struct{}{}

	w.logger.Debug("Added watch path", zap.String("path", absPath))
	return nil
}

// Remove stops watching the file at path.
func (w *Watcher) Remove(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, ok := w.files[absPath]; !ok {
		return fmt.Errorf("path %s is not watched", absPath)
	}
	delete(w.files, absPath)

	dir := filepath.Dir(absPath)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		if err := w.watcher.Remove(dir); err != nil {
			return fmt.Errorf("failed to remove path %s: %w", absPath, err)
		}
	}

	w.logger.Debug("Removed watch path", zap.String("path", absPath))
	return nil
}

// Paths returns the watched files.
func (w *Watcher) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	return paths
}

// Events returns the channel of file events. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) Start() {
	w.mu.Lock()
	if w.isWatching || w.stopped {
		w.mu.Unlock()
		return
	}
	w.isWatching = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.watch()
	w.logger.Info("File watcher started")
}

// Stop ends watching and releases the underlying watcher. A stopped
// Watcher cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	w.isWatching = false
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	close(w.events)
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("Failed to close file watcher", zap.Error(err))
	}
	w.logger.Info("File watcher stopped")
}

func (w *Watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("File system event",
				zap.String("path", event.Name),
				zap.String("operation", event.Op.String()),
			)

			select {
			case w.events <- Event{Path: event.Name, Op: event.Op}:
			case <-w.done:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

// relevant keeps content changes to watched files and drops editor noise.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if shouldSkipEvent(event.Name) {
		return false
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[filepath.Clean(event.Name)]
	return ok
}

func shouldSkipEvent(path string) bool {
	base := filepath.Base(path)
	if base == "" || base == "." {
		return true
	}
	ext := filepath.Ext(path)
	return ext == ".tmp" || ext == ".swp" ||
		strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") || strings.HasSuffix(base, "~")
}

// IsWatching returns whether the watcher is currently active
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.isWatching
}
