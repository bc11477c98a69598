package dataset

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow absorbs the burst of write events editors and sync
// clients produce for a single save.
const debounceWindow = 500 * time.Millisecond

// Watcher reloads the store when the source file changes on disk.
type Watcher struct {
	store    *Store
	log      *zap.Logger
	fw       *fsnotify.Watcher
	onReload func(err error)
}

// NewWatcher watches the directory containing the store's source file.
// onReload, if non-nil, is invoked after every reload attempt.
func NewWatcher(store *Store, log *zap.Logger, onReload func(err error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(store.path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{store: store, log: log, fw: fw, onReload: onReload}, nil
}

// Run consumes file events until ctx is done. Changes to unrelated files
// in the same directory are ignored.
func (w *Watcher) Run(ctx context.Context) {
	target := filepath.Base(w.store.path)
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			_, err := w.store.Reload()
			if err != nil {
				w.log.Warn("dataset reload after file change failed", zap.Error(err))
			}
			if w.onReload != nil {
				w.onReload(err)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("dataset watcher error", zap.Error(err))
		}
	}
}

// Close releases the underlying file system watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
