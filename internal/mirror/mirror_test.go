package mirror

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanjune/yuu-transfer/internal/localfs"
	"github.com/wanjune/yuu-transfer/internal/ports"
)

// memBackend is a Backend over an in-memory afero tree rooted at /remote.
type memBackend struct {
	fs       afero.Fs
	failRead string
	failPut  string
	writes   []string
}

func newMemBackend() *memBackend {
	return &memBackend{fs: afero.NewMemMapFs()}
}

func (b *memBackend) Resolve(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join("/remote", p)
}

func (b *memBackend) Exists(_ context.Context, p string) bool {
	ok, _ := afero.Exists(b.fs, p)
	return ok
}

func (b *memBackend) IsDir(_ context.Context, p string) bool {
	ok, _ := afero.IsDir(b.fs, p)
	return ok
}

func (b *memBackend) List(_ context.Context, dir string) ([]ports.RemoteNode, error) {
	infos, err := afero.ReadDir(b.fs, dir)
	if err != nil {
		return nil, nil
	}
	nodes := make([]ports.RemoteNode, 0, len(infos))
	for _, info := range infos {
		nodes = append(nodes, ports.RemoteNode{
			Path:  path.Join(dir, info.Name()),
			Name:  info.Name(),
			IsDir: info.IsDir(),
			Size:  info.Size(),
		})
	}
	return nodes, nil
}

func (b *memBackend) Read(_ context.Context, p string) (io.ReadCloser, error) {
	if p == b.failRead {
		return nil, errors.New("injected read failure")
	}
	return b.fs.Open(p)
}

func (b *memBackend) EnsureDir(_ context.Context, dir string) error {
	return b.fs.MkdirAll(dir, 0o755)
}

func (b *memBackend) Write(_ context.Context, p string, src ports.LocalFile) error {
	if p == b.failPut {
		return errors.New("injected write failure")
	}
	in, err := src.Open()
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	b.writes = append(b.writes, p)
	return afero.WriteFile(b.fs, p, data, 0o644)
}

func (b *memBackend) Remove(_ context.Context, p string) error {
	return b.fs.Remove(p)
}

func (b *memBackend) RemoveDir(_ context.Context, p string) error {
	entries, err := afero.ReadDir(b.fs, p)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return errors.New("directory not empty")
	}
	return b.fs.Remove(p)
}

func writeTree(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for p, content := range files {
		require.NoError(t, afero.WriteFile(fsys, p, []byte(content), 0o644))
	}
}

func readTree(t *testing.T, fsys afero.Fs, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := afero.Walk(fsys, root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		rel := p[len(root):]
		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestDownloadAppliesFilters(t *testing.T) {
	remote := newMemBackend()
	writeTree(t, remote.fs, map[string]string{
		"/remote/dir/a.txt":       "a",
		"/remote/dir/b.csv":       "b",
		"/remote/dir/.hidden":     "h",
		"/remote/dir/sub/c.CSV":   "c",
		"/remote/dir/sub/d.log":   "d",
		"/remote/dir/skip.me":     "s",
		"/remote/dir/tmp/x.txt":   "x",
		"/remote/dir/.git/config": "g",
	})
	local := localfs.New(afero.NewMemMapFs())
	m := New(remote, local)

	err := m.Download(context.Background(), "dir", "/out", Filter{
		Names:      []string{"skip.me"},
		Extensions: []string{"csv"},
		Patterns:   []string{"tmp/**"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"/a.txt":     "a",
		"/sub/d.log": "d",
	}, readTree(t, local.Fs(), "/out"))
}

func TestDownloadMissingSourceIsNoop(t *testing.T) {
	local := localfs.New(afero.NewMemMapFs())
	m := New(newMemBackend(), local)

	require.NoError(t, m.Download(context.Background(), "/nope", "/out", Filter{}))
	assert.False(t, local.Exists("/out"))
}

func TestDownloadSingleFileOverwrites(t *testing.T) {
	remote := newMemBackend()
	writeTree(t, remote.fs, map[string]string{"/remote/f.txt": "new"})
	lfs := afero.NewMemMapFs()
	writeTree(t, lfs, map[string]string{"/out/f.txt": "old and longer"})
	m := New(remote, localfs.New(lfs))

	require.NoError(t, m.Download(context.Background(), "./f.txt", "/out/f.txt", Filter{}))

	data, err := afero.ReadFile(lfs, "/out/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestDownloadLeafFailureAborts(t *testing.T) {
	remote := newMemBackend()
	writeTree(t, remote.fs, map[string]string{
		"/remote/d/a.txt": "a",
		"/remote/d/b.txt": "b",
		"/remote/d/c.txt": "c",
	})
	remote.failRead = "/remote/d/b.txt"
	local := localfs.New(afero.NewMemMapFs())
	m := New(remote, local)

	err := m.Download(context.Background(), "/remote/d", "/out", Filter{})
	require.Error(t, err)

	var pe *fs.PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "/remote/d/b.txt", pe.Path)
	assert.True(t, local.Exists("/out/a.txt"), "earlier files are not rolled back")
	assert.False(t, local.Exists("/out/c.txt"), "walk stops at the failure")
}

func TestUploadRoundTrip(t *testing.T) {
	lfs := afero.NewMemMapFs()
	files := map[string]string{
		"/src/a.txt":         "alpha",
		"/src/nested/b.bin":  "\x00\x01\x02",
		"/src/nested/deep/c": "charlie",
	}
	writeTree(t, lfs, files)
	local := localfs.New(lfs)
	remote := newMemBackend()
	m := New(remote, local)
	ctx := context.Background()

	require.NoError(t, m.Upload(ctx, "/src", "tree", Filter{}))
	require.NoError(t, m.Download(ctx, "tree", "/copy", Filter{}))

	assert.Equal(t, readTree(t, lfs, "/src"), readTree(t, lfs, "/copy"))
}

func TestUploadSingleFileTakesRemoteName(t *testing.T) {
	lfs := afero.NewMemMapFs()
	writeTree(t, lfs, map[string]string{"/tmp/a.csv": "rows"})
	remote := newMemBackend()
	m := New(remote, localfs.New(lfs))

	require.NoError(t, m.Upload(context.Background(), "/tmp/a.csv", "/in/b.csv", Filter{}))

	assert.Equal(t, []string{"/in/b.csv"}, remote.writes)
	data, err := afero.ReadFile(remote.fs, "/in/b.csv")
	require.NoError(t, err)
	assert.Equal(t, "rows", string(data))
}

func TestUploadSkipsHiddenAndMissing(t *testing.T) {
	lfs := afero.NewMemMapFs()
	writeTree(t, lfs, map[string]string{
		"/src/.env":  "secret",
		"/src/a.txt": "a",
	})
	remote := newMemBackend()
	m := New(remote, localfs.New(lfs))
	ctx := context.Background()

	require.NoError(t, m.Upload(ctx, "/src", "/remote/up", Filter{}))
	assert.Equal(t, []string{"/remote/up/a.txt"}, remote.writes)

	require.NoError(t, m.Upload(ctx, "/missing", "/remote/up", Filter{}))
	assert.Len(t, remote.writes, 1)
}

func TestUploadLeafFailure(t *testing.T) {
	lfs := afero.NewMemMapFs()
	writeTree(t, lfs, map[string]string{"/src/a.txt": "a"})
	remote := newMemBackend()
	remote.failPut = "/remote/up/a.txt"
	m := New(remote, localfs.New(lfs))

	err := m.Upload(context.Background(), "/src", "/remote/up", Filter{})
	var pe *fs.PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "upload", pe.Op)
	assert.Equal(t, "/remote/up/a.txt", pe.Path)
}

func TestRemoveIsIdempotent(t *testing.T) {
	remote := newMemBackend()
	writeTree(t, remote.fs, map[string]string{
		"/remote/r/a.txt":     "a",
		"/remote/r/s/b.txt":   "b",
		"/remote/r/s/t/c.txt": "c",
	})
	m := New(remote, localfs.New(afero.NewMemMapFs()))
	ctx := context.Background()

	require.NoError(t, m.Remove(ctx, "r"))
	assert.False(t, remote.Exists(ctx, "/remote/r"))
	require.NoError(t, m.Remove(ctx, "r"))
}

func TestRemoveCanceled(t *testing.T) {
	remote := newMemBackend()
	writeTree(t, remote.fs, map[string]string{"/remote/r/a.txt": "a"})
	m := New(remote, localfs.New(afero.NewMemMapFs()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Remove(ctx, "r"), context.Canceled)
	assert.True(t, remote.Exists(context.Background(), "/remote/r/a.txt"))
}

func TestLatestByName(t *testing.T) {
	remote := newMemBackend()
	writeTree(t, remote.fs, map[string]string{
		"/remote/in/20230101.csv": "",
		"/remote/in/20230301.csv": "",
		"/remote/in/20230201.csv": "",
		"/remote/in/20231231.txt": "",
		"/remote/in/.20991231":    "",
	})
	ctx := context.Background()

	got, err := LatestByName(ctx, remote, "in", "csv")
	require.NoError(t, err)
	assert.Equal(t, "20230301.csv", got)

	got, err = LatestByName(ctx, remote, "in", "")
	require.NoError(t, err)
	assert.Equal(t, "20231231.txt", got)

	got, err = LatestByName(ctx, remote, "in", "xml")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilter(t *testing.T) {
	f := Filter{Names: []string{"Thumbs.db"}, Extensions: []string{".TMP"}, Patterns: []string{"**/cache/**"}}
	require.NoError(t, f.Validate())

	assert.True(t, f.Skips(".DS_Store", ".DS_Store"))
	assert.True(t, f.Skips("Thumbs.db", "a/Thumbs.db"))
	assert.True(t, f.Skips("x.tmp", "x.tmp"))
	assert.True(t, f.Skips("y.bin", "a/cache/y.bin"))
	assert.False(t, f.Skips("y.bin", "a/y.bin"))
	assert.False(t, Filter{}.Skips("a.csv", "a.csv"))

	assert.Error(t, Filter{Patterns: []string{"[a-"}}.Validate())
}
