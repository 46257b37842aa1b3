package transfer

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/localfs"
	"github.com/wanjune/yuu-transfer/internal/mirror"
	"github.com/wanjune/yuu-transfer/internal/objectstore"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

// ObjectStoreOptions pairs a bucket client with transfer tuning.
type ObjectStoreOptions struct {
	Store   ports.ObjectStore
	Tuning  objectstore.Options
	LocalFs afero.Fs // nil selects the OS filesystem
}

// ObjectStore transfers trees to and from one bucket.
type ObjectStore struct {
	session *objectstore.Session
	local   *localfs.Gateway
	mirror  *mirror.Mirror
}

// NewObjectStore wraps a bucket session.
func NewObjectStore(session *objectstore.Session, local *localfs.Gateway) *ObjectStore {
	return &ObjectStore{
		session: session,
		local:   local,
		mirror:  mirror.New(session, local),
	}
}

// Upload copies local into the bucket under remote. Large files go through
// multipart upload.
func (t *ObjectStore) Upload(ctx context.Context, local, remote string, filter mirror.Filter) error {
	return apperr.Wrap(apperr.CodeObjectStore, "upload", remote, t.mirror.Upload(ctx, local, remote, filter))
}

// Download copies the object or prefix remote into local.
func (t *ObjectStore) Download(ctx context.Context, remote, local string, filter mirror.Filter) error {
	return apperr.Wrap(apperr.CodeObjectStore, "download", remote, t.mirror.Download(ctx, remote, local, filter))
}

// Delete removes the object remote, or every object under remote + "/".
func (t *ObjectStore) Delete(ctx context.Context, remote string) error {
	return apperr.Wrap(apperr.CodeObjectStore, "delete", remote, t.session.Delete(ctx, remote))
}

// IsExists reports whether an object with exactly key p exists. Prefixes
// do not count; use IsDir for those.
func (t *ObjectStore) IsExists(ctx context.Context, p string) (bool, error) {
	ok, err := t.session.IsExists(ctx, p)
	if err != nil {
		return false, apperr.ObjectStore("exists", p, err)
	}
	return ok, nil
}

// IsDir reports whether any object key lives under p + "/".
func (t *ObjectStore) IsDir(ctx context.Context, p string) bool {
	return t.session.IsDir(ctx, p)
}

// LatestByName returns the greatest name directly under dir, optionally
// limited to extension ext, or "" when nothing matches.
func (t *ObjectStore) LatestByName(ctx context.Context, dir, ext string) (string, error) {
	name, err := mirror.LatestByName(ctx, t.session, dir, ext)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeObjectStore, "latest", dir, err)
	}
	return name, nil
}

// WithObjectStore runs fn against a bucket session and closes the client
// afterwards.
func WithObjectStore(ctx context.Context, opts ObjectStoreOptions, fn func(*ObjectStore) error) error {
	if opts.Store == nil {
		return apperr.InvalidArgument("connect", "store")
	}
	session := objectstore.NewSession(opts.Store, opts.Tuning)
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("close object store client", slog.String("error", err.Error()))
		}
	}()

	return fn(NewObjectStore(session, localfs.New(opts.LocalFs)))
}

// Push uploads local to remote. With clearFirst everything under remote
// is deleted before the upload.
func (t *ObjectStore) Push(ctx context.Context, local, remote string, clearFirst bool, filter mirror.Filter) error {
	if clearFirst {
		if err := t.Delete(ctx, remote); err != nil {
			return err
		}
	}
	return t.Upload(ctx, local, remote, filter)
}

// Pull downloads remote to local. With clearFirst the local destination is
// deleted before the download.
func (t *ObjectStore) Pull(ctx context.Context, remote, local string, clearFirst bool, filter mirror.Filter) error {
	if clearFirst {
		if err := t.local.DeleteRecursive(local); err != nil {
			return apperr.ObjectStore("download", local, err)
		}
	}
	return t.Download(ctx, remote, local, filter)
}

// ObjectStoreUpload runs Push against a bucket session of its own.
func ObjectStoreUpload(ctx context.Context, opts ObjectStoreOptions, local, remote string, clearFirst bool, filter mirror.Filter) error {
	return WithObjectStore(ctx, opts, func(t *ObjectStore) error {
		return t.Push(ctx, local, remote, clearFirst, filter)
	})
}

// ObjectStoreDownload runs Pull against a bucket session of its own.
func ObjectStoreDownload(ctx context.Context, opts ObjectStoreOptions, remote, local string, clearFirst bool, filter mirror.Filter) error {
	return WithObjectStore(ctx, opts, func(t *ObjectStore) error {
		return t.Pull(ctx, remote, local, clearFirst, filter)
	})
}
