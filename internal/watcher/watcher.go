// Package watcher observes the deck source directory for changes and
// feeds debounced change events to registered handlers. Any change to the
// source table, templates, manifest, or assets means open previews are
// stale and must be told to re-fetch.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/decklab/decklab/internal/logging"
)

// FileWatcher watches directories recursively with debouncing.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
}

// ChangeEvent represents one file change.
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
}

// EventType represents the kind of file change.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType.
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter reports whether a path should be watched.
type FileFilter func(path string) bool

// ChangeHandler handles a debounced batch of change events.
type ChangeHandler func(events []ChangeEvent) error

// debouncer groups rapid file changes together. Coalescing is allowed:
// the notification contract is at-least-once per logical change, not
// exactly-once per filesystem event.
type debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// New creates a file watcher with the given debounce delay.
func New(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &FileWatcher{
		watcher: fsWatcher,
		debouncer: &debouncer{
			delay:  debounceDelay,
			events: make(chan ChangeEvent, 100),
			output: make(chan []ChangeEvent, 10),
		},
		logger: logger.WithComponent("watcher"),
	}, nil
}

// AddFilter adds a file filter.
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler.
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddRecursive watches root and every subdirectory beneath it.
func (fw *FileWatcher) AddRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fw.watcher.Add(path)
		}
		return nil
	})
}

// Start runs the watcher goroutines until the context is canceled.
func (fw *FileWatcher) Start(ctx context.Context) {
	go fw.debouncer.run(ctx)
	go fw.dispatch(ctx)
	go fw.watchLoop(ctx)
}

// Stop stops the watcher and releases its resources.
func (fw *FileWatcher) Stop() error {
	fw.debouncer.mutex.Lock()
	if fw.debouncer.timer != nil {
		fw.debouncer.timer.Stop()
	}
	fw.debouncer.mutex.Unlock()

	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "watch error, continuing")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	var modTime time.Time
	if info, err := os.Stat(event.Name); err == nil {
		modTime = info.ModTime()
		// New directories need to join the recursive watch.
		if info.IsDir() && event.Op&fsnotify.Create != 0 {
			_ = fw.watcher.Add(event.Name)
		}
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = EventTypeCreated
	case event.Op&fsnotify.Write != 0:
		eventType = EventTypeModified
	case event.Op&fsnotify.Remove != 0:
		eventType = EventTypeDeleted
	case event.Op&fsnotify.Rename != 0:
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	select {
	case fw.debouncer.events <- ChangeEvent{Type: eventType, Path: event.Name, ModTime: modTime}:
	default:
		// Channel full; the pending batch already guarantees a
		// notification.
	}
}

func (fw *FileWatcher) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil {
					fw.logger.Warn(ctx, err, "change handler failed")
				}
			}
		}
	}
}

func (d *debouncer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.add(event)
		}
	}
}

func (d *debouncer) add(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

func (d *debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// Deduplicate by path; one logical change per file per batch.
	byPath := make(map[string]ChangeEvent, len(d.pending))
	for _, event := range d.pending {
		byPath[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(byPath))
	for _, event := range byPath {
		events = append(events, event)
	}

	select {
	case d.output <- events:
	default:
	}

	d.pending = d.pending[:0]
}

// NoHiddenFilter skips dotfiles and editor swap noise.
func NoHiddenFilter(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") &&
		!strings.HasSuffix(base, ".swp")
}

// NoExportFilter skips the export output directory so writing captured
// cards doesn't retrigger a reload.
func NoExportFilter(exportDir string) FileFilter {
	clean := filepath.Clean(exportDir)
	return func(path string) bool {
		return !strings.HasPrefix(filepath.Clean(path), clean)
	}
}
