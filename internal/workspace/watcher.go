package workspace

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before the
// change callback runs.
const DefaultDebounce = 2 * time.Second

// FileWatcher watches one or more directory trees and calls onChange once
// the trees have been quiet for the debounce period.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	roots    []string
	debounce time.Duration
	onChange func()

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
	started  bool

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewFileWatcher creates a watcher over roots. A non-positive debounce uses
// DefaultDebounce.
func NewFileWatcher(roots []string, debounce time.Duration, onChange func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &FileWatcher{
		watcher:  w,
		roots:    roots,
		debounce: debounce,
		onChange: onChange,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start registers every directory of the watched trees and begins
// delivering change notifications in the background.
func (fw *FileWatcher) Start() error {
	for _, root := range fw.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			if err := fw.watcher.Add(path); err != nil {
				slog.Warn("unable to watch directory", "path", path, "error", err)
			}
			return nil
		})
		if err != nil {
			fw.watcher.Close()
			return err
		}
		slog.Info("watcher started", "root", root)
	}

	fw.started = true
	go fw.watchLoop()
	return nil
}

func (fw *FileWatcher) watchLoop() {
	defer close(fw.done)
	defer fw.watcher.Close()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// Ignore chmod events (too noisy)
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() && !SkipDir(filepath.Base(event.Name)) {
					if err := fw.watcher.Add(event.Name); err != nil {
						slog.Warn("unable to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			slog.Debug("change detected", "path", event.Name, "op", event.Op.String())
			fw.triggerDebounced()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)

		case <-fw.stopChan:
			return
		}
	}
}

func (fw *FileWatcher) triggerDebounced() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, func() {
		select {
		case <-fw.stopChan:
			return
		default:
		}
		fw.onChange()
	})
}

// Stop ends watching and waits for the event loop to exit. Pending
// callbacks are cancelled.
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.stopChan)

		fw.timerMu.Lock()
		if fw.timer != nil {
			fw.timer.Stop()
		}
		fw.timerMu.Unlock()
	})
	if !fw.started {
		fw.watcher.Close()
		return
	}
	<-fw.done
}
