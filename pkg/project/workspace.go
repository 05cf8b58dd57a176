// Package project holds the studio workspace: the editable files of a boxel
// project kept in an in-memory filesystem, its manifest, and the loader and
// watcher that keep the workspace in step with a directory on disk.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"

	"github.com/chazu/boxel/pkg/bundler"
)

// ErrInvalidPath is returned for paths that escape the workspace root.
var ErrInvalidPath = errors.New("invalid workspace path")

// Workspace is a mutex-guarded in-memory file tree. Every successful write
// or removal bumps the revision.
type Workspace struct {
	mu       sync.RWMutex
	fs       *mem.FS
	revision uint64
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() (*Workspace, error) {
	memfs, err := mem.NewFS()
	if err != nil {
		return nil, err
	}
	return &Workspace{fs: memfs}, nil
}

// CleanPath turns a client-supplied path into a workspace key. Leading
// slashes are dropped; ".." segments that climb out of the root are
// rejected.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") || !fs.ValidPath(c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return c, nil
}

// Write stores content at p, creating parent directories.
func (w *Workspace) Write(p string, content []byte) error {
	key, err := CleanPath(p)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if dir := path.Dir(key); dir != "." {
		if err := hackpadfs.MkdirAll(w.fs, dir, 0o755); err != nil {
			return fmt.Errorf("workspace: mkdir %s: %w", dir, err)
		}
	}
	if err := hackpadfs.WriteFullFile(w.fs, key, content, 0o644); err != nil {
		return fmt.Errorf("workspace: write %s: %w", key, err)
	}
	w.revision++
	return nil
}

// Read returns the content stored at p.
func (w *Workspace) Read(p string) ([]byte, error) {
	key, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return fs.ReadFile(w.fs, key)
}

// Remove deletes the file at p. Removing a missing file returns an error
// wrapping fs.ErrNotExist.
func (w *Workspace) Remove(p string) error {
	key, err := CleanPath(p)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := hackpadfs.Remove(w.fs, key); err != nil {
		return err
	}
	w.revision++
	return nil
}

// Revision returns the number of changes applied so far.
func (w *Workspace) Revision() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.revision
}

// Paths lists every file in sorted order.
func (w *Workspace) Paths() ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paths()
}

func (w *Workspace) paths() ([]string, error) {
	var out []string
	err := fs.WalkDir(w.fs, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			out = append(out, p)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// Files snapshots the workspace as a bundler file map together with the
// revision it reflects.
func (w *Workspace) Files() (bundler.FileMap, uint64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	paths, err := w.paths()
	if err != nil {
		return nil, 0, err
	}
	files := make(bundler.FileMap, len(paths))
	for _, p := range paths {
		b, err := fs.ReadFile(w.fs, p)
		if err != nil {
			return nil, 0, err
		}
		files[p] = string(b)
	}
	return files, w.revision, nil
}

// Persist writes the workspace copy of p below dir on disk.
func (w *Workspace) Persist(dir, p string) error {
	b, err := w.Read(p)
	if err != nil {
		return err
	}
	key, _ := CleanPath(p)
	dst := filepath.Join(dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, b, 0o644)
}

// Unpersist removes p below dir on disk. A missing file is not an error.
func Unpersist(dir, p string) error {
	key, err := CleanPath(p)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
