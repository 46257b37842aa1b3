package ports

import "github.com/spf13/afero"

// RemoteNode is one entry of a remote directory listing.
type RemoteNode struct {
	Path  string
	Name  string
	IsDir bool
	Size  int64
}

// LocalFile is a local source file handed to a remote backend for upload.
type LocalFile struct {
	Fs   afero.Fs
	Path string
	Name string
	Size int64
}

// Open opens a new independent read handle on the file.
func (f LocalFile) Open() (afero.File, error) {
	return f.Fs.Open(f.Path)
}
