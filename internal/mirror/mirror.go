// Package mirror copies and deletes directory trees between the local
// filesystem and a remote backend.
//
// Every operation is synchronous. The first leaf failure aborts the whole
// walk and is returned as an *fs.PathError naming the failing path; files
// transferred before the failure are left in place.
package mirror

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/wanjune/yuu-transfer/internal/localfs"
	"github.com/wanjune/yuu-transfer/internal/pathutil"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

// Backend is the remote side of a mirror.
type Backend interface {
	// Resolve makes a caller path absolute for this backend.
	Resolve(p string) string
	// Exists and IsDir report false on any failure.
	Exists(ctx context.Context, p string) bool
	IsDir(ctx context.Context, p string) bool
	// List returns one level of entries; a missing directory is empty.
	List(ctx context.Context, dir string) ([]ports.RemoteNode, error)
	Read(ctx context.Context, p string) (io.ReadCloser, error)
	// EnsureDir creates dir and its parents when absent.
	EnsureDir(ctx context.Context, dir string) error
	Write(ctx context.Context, p string, src ports.LocalFile) error
	Remove(ctx context.Context, p string) error
	RemoveDir(ctx context.Context, p string) error
}

// Mirror walks trees between local and a remote Backend.
type Mirror struct {
	remote Backend
	local  *localfs.Gateway
}

// New returns a Mirror over remote and local.
func New(remote Backend, local *localfs.Gateway) *Mirror {
	return &Mirror{remote: remote, local: local}
}

// Download copies remotePath to localPath. A missing source is logged and
// ignored.
func (m *Mirror) Download(ctx context.Context, remotePath, localPath string, filter Filter) error {
	src := m.remote.Resolve(remotePath)
	if !m.remote.Exists(ctx, src) {
		slog.Info("remote source not found, nothing to download", slog.String("path", src))
		return nil
	}
	return m.download(ctx, src, localPath, "", filter.compile())
}

func (m *Mirror) download(ctx context.Context, remotePath, localPath, rel string, match matcher) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.remote.IsDir(ctx, remotePath) {
		nodes, err := m.remote.List(ctx, remotePath)
		if err != nil {
			return &fs.PathError{Op: "list", Path: remotePath, Err: err}
		}
		if err := m.local.MkdirAll(localPath); err != nil {
			return &fs.PathError{Op: "mkdir", Path: localPath, Err: err}
		}
		for _, node := range nodes {
			childRel := pathutil.Child(rel, node.Name)
			if match.skip(node.Name, childRel) {
				continue
			}
			err := m.download(ctx, pathutil.Child(remotePath, node.Name), filepath.Join(localPath, node.Name), childRel, match)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := m.downloadFile(ctx, remotePath, localPath); err != nil {
		return &fs.PathError{Op: "download", Path: remotePath, Err: err}
	}
	return nil
}

func (m *Mirror) downloadFile(ctx context.Context, remotePath, localPath string) (err error) {
	in, err := m.remote.Read(ctx, remotePath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := m.local.Create(localPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close local file: %w", cerr)
		}
	}()

	n, err := io.Copy(out, in)
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	slog.Debug("downloaded file",
		slog.String("remote", remotePath),
		slog.String("local", localPath),
		slog.Int64("bytes", n),
	)
	return nil
}

// Upload copies localPath to remotePath. A missing source is logged and
// ignored.
func (m *Mirror) Upload(ctx context.Context, localPath, remotePath string, filter Filter) error {
	if !m.local.Exists(localPath) {
		slog.Info("local source not found, nothing to upload", slog.String("path", localPath))
		return nil
	}
	return m.upload(ctx, localPath, m.remote.Resolve(remotePath), "", filter.compile())
}

func (m *Mirror) upload(ctx context.Context, localPath, remotePath, rel string, match matcher) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.local.IsDir(localPath) {
		entries, err := m.local.List(localPath)
		if err != nil {
			return &fs.PathError{Op: "list", Path: localPath, Err: err}
		}
		for _, e := range entries {
			childRel := pathutil.Child(rel, e.Name)
			if match.skip(e.Name, childRel) {
				continue
			}
			remoteChild := pathutil.Child(remotePath, pathutil.EncodeName(e.Name))
			err := m.upload(ctx, filepath.Join(localPath, e.Name), remoteChild, childRel, match)
			if err != nil {
				return err
			}
		}
		return nil
	}

	info, err := m.local.Stat(localPath)
	if err != nil {
		return &fs.PathError{Op: "upload", Path: localPath, Err: err}
	}
	if err := m.remote.EnsureDir(ctx, pathutil.Parent(remotePath)); err != nil {
		return &fs.PathError{Op: "mkdir", Path: pathutil.Parent(remotePath), Err: err}
	}
	src := ports.LocalFile{
		Fs:   m.local.Fs(),
		Path: localPath,
		Name: info.Name(),
		Size: info.Size(),
	}
	if err := m.remote.Write(ctx, remotePath, src); err != nil {
		return &fs.PathError{Op: "upload", Path: remotePath, Err: err}
	}
	slog.Debug("uploaded file",
		slog.String("local", localPath),
		slog.String("remote", remotePath),
		slog.Int64("bytes", info.Size()),
	)
	return nil
}

// Remove deletes remotePath and, for directories, everything below it.
// Removing a missing path is a no-op.
func (m *Mirror) Remove(ctx context.Context, remotePath string) error {
	target := m.remote.Resolve(remotePath)
	if !m.remote.Exists(ctx, target) {
		slog.Info("remote path not found, nothing to remove", slog.String("path", target))
		return nil
	}
	return m.remove(ctx, target)
}

func (m *Mirror) remove(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !m.remote.IsDir(ctx, remotePath) {
		if err := m.remote.Remove(ctx, remotePath); err != nil {
			return &fs.PathError{Op: "remove", Path: remotePath, Err: err}
		}
		return nil
	}

	nodes, err := m.remote.List(ctx, remotePath)
	if err != nil {
		return &fs.PathError{Op: "list", Path: remotePath, Err: err}
	}
	for _, node := range nodes {
		if pathutil.Hidden(node.Name) {
			continue
		}
		if err := m.remove(ctx, pathutil.Child(remotePath, node.Name)); err != nil {
			return err
		}
	}
	if err := m.remote.RemoveDir(ctx, remotePath); err != nil {
		return &fs.PathError{Op: "rmdir", Path: remotePath, Err: err}
	}
	return nil
}

// LatestByName returns the lexically greatest non-hidden entry name in dir,
// optionally restricted to one extension. It assumes names embed a
// sortable timestamp or sequence and does not look at modification times.
// It returns "" when nothing matches.
func LatestByName(ctx context.Context, b Backend, dir, ext string) (string, error) {
	nodes, err := b.List(ctx, b.Resolve(dir))
	if err != nil {
		return "", &fs.PathError{Op: "list", Path: dir, Err: err}
	}

	var latest string
	for _, node := range nodes {
		if pathutil.Hidden(node.Name) {
			continue
		}
		if ext != "" && !localfs.MatchExt(node.Name, []string{ext}) {
			continue
		}
		if node.Name > latest {
			latest = node.Name
		}
	}
	if latest == "" {
		slog.Info("no entry matched", slog.String("dir", dir), slog.String("ext", ext))
	}
	return latest, nil
}
