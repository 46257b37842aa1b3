// Package transfer is the public entry point of the engine: one facade per
// remote backend, each composing a session, the local filesystem and the
// tree mirror. Every error it returns is an *apperr.Error.
package transfer

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/localfs"
	"github.com/wanjune/yuu-transfer/internal/mirror"
	"github.com/wanjune/yuu-transfer/internal/sftp"
)

// SFTPOptions opens an SFTP session and selects the local filesystem.
type SFTPOptions struct {
	sftp.Options
	LocalFs afero.Fs // nil selects the OS filesystem
}

// SFTP transfers trees over one open SFTP session.
type SFTP struct {
	session *sftp.Session
	backend *sftp.Backend
	local   *localfs.Gateway
	mirror  *mirror.Mirror
}

// NewSFTP wraps an open session.
func NewSFTP(session *sftp.Session, local *localfs.Gateway) *SFTP {
	backend := session.Backend()
	return &SFTP{
		session: session,
		backend: backend,
		local:   local,
		mirror:  mirror.New(backend, local),
	}
}

// Session returns the underlying session.
func (t *SFTP) Session() *sftp.Session {
	return t.session
}

// Get downloads remote into local.
func (t *SFTP) Get(ctx context.Context, remote, local string, filter mirror.Filter) error {
	return apperr.Wrap(apperr.CodeSFTP, "get", remote, t.mirror.Download(ctx, remote, local, filter))
}

// Put uploads local into remote.
func (t *SFTP) Put(ctx context.Context, local, remote string, filter mirror.Filter) error {
	return apperr.Wrap(apperr.CodeSFTP, "put", remote, t.mirror.Upload(ctx, local, remote, filter))
}

// Rm deletes remote recursively. A missing path is a no-op.
func (t *SFTP) Rm(ctx context.Context, remote string) error {
	return apperr.Wrap(apperr.CodeSFTP, "rm", remote, t.mirror.Remove(ctx, remote))
}

// IsExists reports whether p exists. Failures report false.
func (t *SFTP) IsExists(ctx context.Context, p string) bool {
	return t.backend.Exists(ctx, p)
}

// IsDir reports whether p is a directory. Failures report false.
func (t *SFTP) IsDir(ctx context.Context, p string) bool {
	return t.backend.IsDir(ctx, p)
}

// Probe reports existence strictly, separating "not found" from failures.
func (t *SFTP) Probe(p string) sftp.Probe {
	return t.session.Probe(p)
}

// LatestByName returns the greatest file name in dir, optionally limited
// to extension ext, or "" when nothing matches.
func (t *SFTP) LatestByName(ctx context.Context, dir, ext string) (string, error) {
	name, err := mirror.LatestByName(ctx, t.backend, dir, ext)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeSFTP, "latest", dir, err)
	}
	return name, nil
}

// WithSFTP opens a session, runs fn and always closes the session.
func WithSFTP(ctx context.Context, opts SFTPOptions, fn func(*SFTP) error) (err error) {
	session := sftp.New(opts.Options)
	if err := session.Open(ctx); err != nil {
		return apperr.SFTP("connect", session.Target(), err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			slog.Warn("close sftp session", slog.String("target", session.Target()), slog.String("error", cerr.Error()))
		}
	}()

	return fn(NewSFTP(session, localfs.New(opts.LocalFs)))
}

// Pull downloads remote into local. With clearFirst the local destination
// is deleted before the download.
func (t *SFTP) Pull(ctx context.Context, remote, local string, clearFirst bool, filter mirror.Filter) error {
	if clearFirst {
		if err := t.local.DeleteRecursive(local); err != nil {
			return apperr.SFTP("get", local, err)
		}
	}
	return t.Get(ctx, remote, local, filter)
}

// Push uploads local into remote. With clearFirst the remote destination is
// deleted before the upload.
func (t *SFTP) Push(ctx context.Context, local, remote string, clearFirst bool, filter mirror.Filter) error {
	if clearFirst {
		if err := t.Rm(ctx, remote); err != nil {
			return err
		}
	}
	return t.Put(ctx, local, remote, filter)
}

// SFTPGet runs Pull over a session of its own.
func SFTPGet(ctx context.Context, opts SFTPOptions, remote, local string, clearFirst bool, filter mirror.Filter) error {
	return WithSFTP(ctx, opts, func(t *SFTP) error {
		return t.Pull(ctx, remote, local, clearFirst, filter)
	})
}

// SFTPPut runs Push over a session of its own.
func SFTPPut(ctx context.Context, opts SFTPOptions, local, remote string, clearFirst bool, filter mirror.Filter) error {
	return WithSFTP(ctx, opts, func(t *SFTP) error {
		return t.Push(ctx, local, remote, clearFirst, filter)
	})
}
