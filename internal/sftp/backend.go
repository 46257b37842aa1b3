package sftp

import (
	"context"
	"fmt"
	"io"

	"github.com/wanjune/yuu-transfer/internal/mirror"
	"github.com/wanjune/yuu-transfer/internal/pathutil"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

// Backend adapts a Session to the context-taking tree walker. The SFTP
// protocol calls themselves are not cancelable; ctx is checked before each
// call.
type Backend struct {
	s *Session
}

var _ mirror.Backend = (*Backend)(nil)

// Backend returns the walker view of s.
func (s *Session) Backend() *Backend {
	return &Backend{s: s}
}

// Resolve makes p absolute against the session root.
func (b *Backend) Resolve(p string) string {
	return b.s.Resolve(p)
}

// Exists reports whether p exists. A canceled ctx reports false.
func (b *Backend) Exists(ctx context.Context, p string) bool {
	return ctx.Err() == nil && b.s.Stat(p)
}

// IsDir reports whether p is a directory. A canceled ctx reports false.
func (b *Backend) IsDir(ctx context.Context, p string) bool {
	return ctx.Err() == nil && b.s.IsDir(p)
}

// List returns the entries directly inside dir in name order. A missing
// directory yields none.
func (b *Backend) List(ctx context.Context, dir string) ([]ports.RemoteNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.s.List(dir)
}

// Read opens p for streaming. The caller closes the reader.
func (b *Backend) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.s.GetStream(p)
}

// EnsureDir creates dir and any missing parents.
func (b *Backend) EnsureDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.s.IsDir(dir) {
		return nil
	}
	return b.s.MkdirAll(dir)
}

// Write streams src to p. The parent directory must already exist.
func (b *Backend) Write(ctx context.Context, p string, src ports.LocalFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := src.Open()
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()

	target := b.s.Resolve(p)
	if err := b.s.Cd(pathutil.Parent(target)); err != nil {
		return err
	}
	return b.s.PutStream(pathutil.Base(target), f)
}

// Remove deletes the file p.
func (b *Backend) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.s.Remove(p)
}

// RemoveDir deletes the empty directory p.
func (b *Backend) RemoveDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.s.RemoveDir(p)
}
