package fatfs

import (
	"errors"
	"io"
	"io/fs"
)

// GoDirEntry adapts a FileInfo to fs.DirEntry.
type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

// GoFile adapts a File to fs.ReadDirFile.
type GoFile struct {
	*File
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.File.Readdir(n)

	goEntries := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		goEntries[i] = GoDirEntry{e}
	}

	return goEntries, err
}

// GoFS exposes a mounted volume as fs.FS, for example to use it with fs.WalkDir or http.FS.
type GoFS struct {
	*Fs
}

// NewGoFS mounts the volume read by reader as fs.FS.
func NewGoFS(reader io.ReadSeeker) (*GoFS, error) {
	fat, err := New(reader)
	if err != nil {
		return nil, err
	}

	return &GoFS{fat}, nil
}

func (g GoFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	file, err := g.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	f, ok := file.(*File)
	if !ok {
		return nil, errors.New("invalid File implementation")
	}

	return GoFile{f}, nil
}
