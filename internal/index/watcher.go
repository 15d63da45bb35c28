package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tenderwatch/internal/storage"
)

// EventCallback is called after a watcher-driven resync.
// kind is "updated" or "deleted"; name is the changed data file.
type EventCallback func(kind string, name string)

const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the data directory and resyncs the
// archive whenever the active set or the seeds change on disk, until ctx
// is cancelled. Bursts of events are coalesced into one resync; cb (if
// non-nil) is then called once per changed file.
func Watch(ctx context.Context, db NoticeIndex, cols *storage.Collections, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := cols.Provider().Root()
	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var fire <-chan time.Time
	pending := make(map[string]string)

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			if _, err := Sync(db, cols, time.Now(), logger); err != nil {
				logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
				clear(pending)
				continue
			}
			if cb != nil {
				for name, kind := range pending {
					cb(kind, name)
				}
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if name != storage.ActiveFile && name != storage.SeedsFile {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[name] = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				pending[name] = "deleted"
			default:
				continue
			}
			logger.Debug("watcher: change", slog.String("file", name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
