package units

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the conversion file whenever it changes on disk. A file that
// fails to parse or holds no conversions is ignored. With onLoad nil the
// parsed table is swapped into conv. Otherwise onLoad receives it and owns
// the swap, and conv is left alone.
func Watch(ctx context.Context, path string, conv *Converter, log *zap.Logger, onLoad func(*Table)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// editors replace files, so watch the directory
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				t, err := LoadTOML(path)
				if err != nil {
					log.Warn("conversion table reload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				if t.Len() == 0 {
					// truncated mid-write; wait for the next event
					continue
				}
				log.Info("conversion file reloaded", zap.String("path", path), zap.Int("edges", t.Len()))
				if onLoad != nil {
					onLoad(t)
					continue
				}
				conv.Swap(t)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("conversion watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
