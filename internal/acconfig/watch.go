package acconfig

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultWatchDebounce = 250 * time.Millisecond

// WatchFile calls onChange after path is created, written or replaced,
// coalescing bursts within debounce into one call. It watches the parent
// directory because atomic writes rename a temp file over path. WatchFile
// blocks until ctx is canceled.
func WatchFile(ctx context.Context, path string, debounce time.Duration, log zerolog.Logger, onChange func()) error {
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	base := filepath.Base(path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("path", path).Msg("watch error")
		case <-fire:
			fire = nil
			onChange()
		}
	}
}
