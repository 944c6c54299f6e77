package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"review-insights-go/internal/logger"
)

const watchDebounce = 250 * time.Millisecond

// Watch reloads path into store whenever the file changes, until ctx is
// done. The parent directory is watched so editors that replace the file by
// rename are picked up. A failed reload keeps the previous records.
func Watch(ctx context.Context, path string, store *Store, log *logger.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	log = log.Component("dataset")

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var mu sync.Mutex
	var timer *time.Timer
	reload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(watchDebounce, func() {
			items, err := Load(target)
			if err != nil {
				log.WithError(err).WithField("path", target).Warn("dataset reload failed")
				return
			}
			store.Replace(items)
			log.WithField("records", len(items)).Info("dataset reloaded")
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("dataset watch error")
		}
	}
}
