package project

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/h2non/filetype"
	"golang.org/x/sync/errgroup"
)

// SkipDirs are directory names the loader and watcher never descend into.
var SkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	".cache":       true,
}

// MaxFileSize is the largest file the loader copies into a workspace.
const MaxFileSize = 4 << 20

const loadConcurrency = 8

// LoadStats summarises a directory load.
type LoadStats struct {
	Loaded  int
	Skipped int
}

// Load copies the project files under dir into ws. Binary files are kept
// only when they are images or fonts, which the bundler can inline as data
// URLs. Files are read concurrently.
func Load(ctx context.Context, dir string, ws *Workspace, log *slog.Logger) (LoadStats, error) {
	if log == nil {
		log = slog.Default()
	}
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && SkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return LoadStats{}, err
	}

	var loaded, skipped atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := loadFile(ws, dir, p)
			if err != nil {
				return err
			}
			if ok {
				loaded.Add(1)
			} else {
				skipped.Add(1)
				log.Debug("skipped file", "path", p)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return LoadStats{}, err
	}
	stats := LoadStats{Loaded: int(loaded.Load()), Skipped: int(skipped.Load())}
	log.Info("project loaded", "dir", dir, "files", stats.Loaded, "skipped", stats.Skipped)
	return stats, nil
}

// loadFile copies one file into ws. It reports false for files that were
// skipped.
func loadFile(ws *Workspace, dir, p string) (bool, error) {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return false, err
	}
	if info.Size() > MaxFileSize {
		return false, nil
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return false, err
	}
	if !Editable(b) {
		return false, nil
	}
	return true, ws.Write(filepath.ToSlash(rel), b)
}

// Editable reports whether content belongs in a workspace: text, or an
// image or font the bundler can inline.
func Editable(b []byte) bool {
	kind, err := filetype.Match(b)
	if err != nil || kind == filetype.Unknown {
		return true
	}
	return filetype.IsImage(b) || filetype.IsFont(b)
}
