// Package objectstore implements bucket-level transfer operations on top of
// a ports.ObjectStore client.
//
// Object stores have no directories. A path is treated as a directory when
// at least one key starts with the path followed by "/".
package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/wanjune/yuu-transfer/internal/apperr"
	"github.com/wanjune/yuu-transfer/internal/mirror"
	"github.com/wanjune/yuu-transfer/internal/pathutil"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

const (
	// DefaultSingleShotThreshold is the largest file uploaded with one put.
	DefaultSingleShotThreshold int64 = 2 << 30
	// DefaultPartSize is the multipart part size.
	DefaultPartSize int64 = 1 << 30
	// DefaultPageSize bounds listing pages and delete batches.
	DefaultPageSize int32 = 1000
)

// Options tunes transfers. Zero values select the defaults.
type Options struct {
	SingleShotThreshold int64
	PartSize            int64
	PageSize            int32
	// PartConcurrency > 1 uploads parts in parallel.
	PartConcurrency int
}

func (o Options) withDefaults() Options {
	if o.SingleShotThreshold <= 0 {
		o.SingleShotThreshold = DefaultSingleShotThreshold
	}
	if o.PartSize <= 0 {
		o.PartSize = DefaultPartSize
	}
	if o.PageSize <= 0 || o.PageSize > DefaultPageSize {
		o.PageSize = DefaultPageSize
	}
	if o.PartConcurrency <= 0 {
		o.PartConcurrency = 1
	}
	return o
}

// Session is a bucket-scoped handle. Like the SFTP session it is meant to
// be used by one goroutine at a time.
type Session struct {
	store ports.ObjectStore
	opts  Options
}

var _ mirror.Backend = (*Session)(nil)

// NewSession wraps store.
func NewSession(store ports.ObjectStore, opts Options) *Session {
	return &Session{store: store, opts: opts.withDefaults()}
}

// Close releases the underlying client when it holds resources.
func (s *Session) Close() error {
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Resolve converts a caller path into an object key.
func (s *Session) Resolve(p string) string {
	return pathutil.ObjectKey(p)
}

// IsExists reports whether an object with exactly this key exists. It
// does not recognize directory prefixes; use IsDir for those.
func (s *Session) IsExists(ctx context.Context, p string) (bool, error) {
	key := s.Resolve(p)
	if key == "" {
		return false, nil
	}
	ok, err := s.store.ObjectExists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check object: %w", err)
	}
	return ok, nil
}

// Exists reports whether p is an object or a non-empty directory prefix.
// Failures report false.
func (s *Session) Exists(ctx context.Context, p string) bool {
	if ok, err := s.IsExists(ctx, p); err == nil && ok {
		return true
	}
	return s.IsDir(ctx, p)
}

// IsDir reports whether any key lives under p + "/". Failures report false.
func (s *Session) IsDir(ctx context.Context, p string) bool {
	ok, err := s.hasPrefix(ctx, pathutil.DirPrefix(s.Resolve(p)))
	if err != nil {
		slog.Debug("prefix listing failed", slog.String("path", p), slog.String("error", err.Error()))
		return false
	}
	return ok
}

func (s *Session) hasPrefix(ctx context.Context, prefix string) (bool, error) {
	page, err := s.store.ListObjects(ctx, ports.ListRequest{Prefix: prefix, MaxKeys: 1})
	if err != nil {
		return false, err
	}
	return len(page.Objects) > 0 || len(page.CommonPrefixes) > 0, nil
}

// List returns the objects and sub-prefixes directly under dir.
func (s *Session) List(ctx context.Context, dir string) ([]ports.RemoteNode, error) {
	prefix := pathutil.DirPrefix(s.Resolve(dir))
	var nodes []ports.RemoteNode
	token := ""
	for {
		page, err := s.store.ListObjects(ctx, ports.ListRequest{
			Prefix:            prefix,
			Delimiter:         pathutil.Separator,
			ContinuationToken: token,
			MaxKeys:           s.opts.PageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			key := strings.TrimSuffix(cp, pathutil.Separator)
			nodes = append(nodes, ports.RemoteNode{Path: key, Name: pathutil.Base(key), IsDir: true})
		}
		for _, obj := range page.Objects {
			if obj.Key == prefix {
				continue // directory marker
			}
			nodes = append(nodes, ports.RemoteNode{Path: obj.Key, Name: pathutil.Base(obj.Key), Size: obj.Size})
		}
		if !page.IsTruncated || page.NextContinuationToken == "" {
			return nodes, nil
		}
		token = page.NextContinuationToken
	}
}

// Read opens an object for streaming. The caller closes it.
func (s *Session) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	body, err := s.store.GetObject(ctx, s.Resolve(p))
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return body, nil
}

// EnsureDir is a no-op; prefixes exist implicitly.
func (s *Session) EnsureDir(context.Context, string) error {
	return nil
}

// Write uploads src to key p.
func (s *Session) Write(ctx context.Context, p string, src ports.LocalFile) error {
	return s.Upload(ctx, s.Resolve(p), src)
}

// Remove deletes one object.
func (s *Session) Remove(ctx context.Context, p string) error {
	if err := s.store.DeleteObject(ctx, s.Resolve(p)); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// RemoveDir deletes the directory marker object for p, if any.
func (s *Session) RemoveDir(ctx context.Context, p string) error {
	marker := pathutil.DirPrefix(s.Resolve(p))
	if marker == "" {
		return nil
	}
	if err := s.store.DeleteObject(ctx, marker); err != nil {
		return fmt.Errorf("delete directory marker: %w", err)
	}
	return nil
}

// Delete removes the object at p, or when p is not an object every key
// under p + "/". Deleting a missing path is a no-op.
func (s *Session) Delete(ctx context.Context, p string) error {
	key := s.Resolve(p)
	if key == "" {
		return apperr.InvalidArgument("delete", "path")
	}

	exists, err := s.store.ObjectExists(ctx, key)
	if err != nil {
		return fmt.Errorf("check object: %w", err)
	}
	if exists {
		if err := s.store.DeleteObject(ctx, key); err != nil {
			return fmt.Errorf("delete object: %w", err)
		}
		return nil
	}

	prefix := pathutil.DirPrefix(key)
	token := ""
	deleted := 0
	for {
		page, err := s.store.ListObjects(ctx, ports.ListRequest{
			Prefix:            prefix,
			ContinuationToken: token,
			MaxKeys:           s.opts.PageSize,
		})
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		if len(page.Objects) > 0 {
			keys := make([]string, len(page.Objects))
			for i, obj := range page.Objects {
				keys[i] = obj.Key
			}
			if err := s.store.DeleteObjects(ctx, keys); err != nil {
				return fmt.Errorf("delete objects: %w", err)
			}
			deleted += len(keys)
		}
		if !page.IsTruncated || page.NextContinuationToken == "" {
			break
		}
		token = page.NextContinuationToken
	}

	if deleted == 0 {
		slog.Info("object path not found, nothing to delete", slog.String("path", key))
	} else {
		slog.Debug("deleted prefix", slog.String("prefix", prefix), slog.Int("objects", deleted))
	}
	return nil
}
