package project

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is how long the watcher waits for changes to settle
// before calling its change handler.
const DebounceInterval = 200 * time.Millisecond

// Watcher mirrors changes under a project directory into a workspace and
// calls OnChange once a burst of changes has settled.
type Watcher struct {
	Dir      string
	WS       *Workspace
	OnChange func()

	log      *slog.Logger
	fsw      *fsnotify.Watcher
	debounce func(func())
}

// NewWatcher watches dir and every subdirectory not in SkipDirs.
func NewWatcher(dir string, ws *Workspace, onChange func(), log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		Dir:      dir,
		WS:       ws,
		OnChange: onChange,
		log:      log,
		fsw:      fsw,
		debounce: debounce.New(DebounceInterval),
	}
	if err := w.addTree(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && SkipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.apply(event) {
				w.debounce(w.changed)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "err", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) changed() {
	if w.OnChange != nil {
		w.OnChange()
	}
}

// apply mirrors one event into the workspace and reports whether the
// workspace changed.
func (w *Watcher) apply(event fsnotify.Event) bool {
	rel, err := filepath.Rel(w.Dir, event.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		if err := w.WS.Remove(rel); err != nil {
			return false
		}
		w.log.Debug("file removed", "path", rel)
		return true
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return false
		}
		if info.IsDir() {
			if SkipDirs[info.Name()] {
				return false
			}
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn("watch directory", "path", rel, "err", err)
			}
			return false
		}
		ok, err := loadFile(w.WS, w.Dir, event.Name)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				w.log.Warn("reload file", "path", rel, "err", err)
			}
			return false
		}
		if ok {
			w.log.Debug("file reloaded", "path", rel)
		}
		return ok
	}
	return false
}
