// Package localfs is the local filesystem gateway used by transfers.
package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/wanjune/yuu-transfer/internal/pathutil"
)

// Entry is one child returned by List.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Gateway performs local file operations on an afero filesystem.
type Gateway struct {
	fs afero.Fs
}

// New returns a Gateway over fsys. A nil fsys selects the OS filesystem.
func New(fsys afero.Fs) *Gateway {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Gateway{fs: fsys}
}

// Fs returns the underlying filesystem.
func (g *Gateway) Fs() afero.Fs {
	return g.fs
}

// Exists reports whether p exists. Stat errors other than not-exist are
// reported as existing so callers surface them on the next operation.
func (g *Gateway) Exists(p string) bool {
	_, err := g.fs.Stat(p)
	return err == nil || !os.IsNotExist(err)
}

// IsDir reports whether p is a directory.
func (g *Gateway) IsDir(p string) bool {
	ok, err := afero.IsDir(g.fs, p)
	return err == nil && ok
}

// Stat returns file info for p.
func (g *Gateway) Stat(p string) (os.FileInfo, error) {
	return g.fs.Stat(p)
}

// Open opens p for reading.
func (g *Gateway) Open(p string) (afero.File, error) {
	return g.fs.Open(p)
}

// Create creates or truncates p, creating parent directories first.
func (g *Gateway) Create(p string) (afero.File, error) {
	if err := g.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directories: %w", err)
	}
	f, err := g.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return f, nil
}

// MkdirAll creates p and any missing parents.
func (g *Gateway) MkdirAll(p string) error {
	return g.fs.MkdirAll(p, 0o755)
}

// DeleteRecursive removes p and everything below it. A missing path is not
// an error.
func (g *Gateway) DeleteRecursive(p string) error {
	if err := g.fs.RemoveAll(p); err != nil {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// List returns the children of dir in name order.
func (g *Gateway) List(dir string) ([]Entry, error) {
	infos, err := afero.ReadDir(g.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:  info.Name(),
			IsDir: info.IsDir(),
			Size:  info.Size(),
		})
	}
	return entries, nil
}

// ListFiles returns the full paths of the non-hidden regular files directly
// inside dir, sorted lexically. When exts is non-empty only files whose
// extension matches one of them (case-insensitively) are returned.
func (g *Gateway) ListFiles(dir string, exts []string) ([]string, error) {
	entries, err := g.List(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir || pathutil.Hidden(e.Name) {
			continue
		}
		if len(exts) > 0 && !MatchExt(e.Name, exts) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name))
	}
	SortLexical(paths)
	return paths, nil
}

// MatchExt reports whether the extension of name equals one of exts,
// ignoring case.
func MatchExt(name string, exts []string) bool {
	ext := pathutil.Ext(name)
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

// SortLexical sorts names in byte order.
func SortLexical(names []string) {
	sort.Strings(names)
}
