package fatfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/aligator/romfat/checkpoint"
)

// These errors may occur while processing a file.
var (
	ErrReadFile = errors.New("could not read file completely")
	ErrSeekFile = errors.New("could not seek inside of the file")
	ErrReadDir  = errors.New("could not read the directory")
)

// fatFileFs provides all methods needed from a fat filesystem for File.
// It mainly exists to be able to mock the Fs in tests.
// Generated mock using mockgen:
//  mockgen -source=file.go -destination=file_mock_test.go -package fatfs
type fatFileFs interface {
	readFileAt(cluster uint32, fileSize int64, offset int64, readSize int64) ([]byte, error)
	readRoot() ([]EntryHeader, error)
	readDir(cluster uint32) ([]EntryHeader, error)
}

// File is a read-only afero.File of a mounted FAT volume.
type File struct {
	fs   fatFileFs
	path string

	isDirectory bool
	isReadOnly  bool
	isHidden    bool
	isSystem    bool

	firstCluster uint32
	stat         os.FileInfo
	offset       int64
}

func newFile(fs fatFileFs, path string, entry EntryHeader) *File {
	return &File{
		fs:           fs,
		path:         path,
		isDirectory:  entry.IsDir(),
		isReadOnly:   entry.Attribute&AttrReadOnly != 0,
		isHidden:     entry.Attribute&AttrHidden != 0,
		isSystem:     entry.Attribute&AttrSystem != 0,
		firstCluster: entry.FirstCluster(),
		stat:         entry.FileInfo(),
	}
}

func (f *File) Close() error {
	*f = File{}
	return nil
}

func (f *File) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	if f.isDirectory {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrReadFile)
	}

	// Reading a file if the size has been already reached makes no sense.
	if f.stat.Size() <= f.offset {
		return 0, io.EOF
	}

	data, err := f.fs.readFileAt(f.firstCluster, f.stat.Size(), f.offset, int64(len(p)))
	n = copy(p, data)
	f.offset += int64(n)

	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}

	return n, nil
}

// ReadAt reads len(p) bytes at off without moving the offset used by Read.
// Like io.ReaderAt requires, it returns an error whenever fewer than len(p) bytes are read.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, checkpoint.Wrap(syscall.EINVAL, ErrReadFile)
	}

	if len(p) == 0 {
		return 0, nil
	}

	if f.isDirectory {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrReadFile)
	}

	// Reading over the end makes no sense.
	if f.stat.Size() <= off {
		return 0, io.EOF
	}

	data, err := f.fs.readFileAt(f.firstCluster, f.stat.Size(), off, int64(len(p)))
	n = copy(p, data)

	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek jumps to a specific offset in the file. This affects all Read operations except ReadAt.
// Seeking past the end is allowed, the next Read then returns io.EOF.
// May return a syscall.EINVAL error if the whence value is invalid or the result is negative.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 {
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	return 0, &os.PathError{Op: "write", Path: f.path, Err: syscall.EROFS}
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, &os.PathError{Op: "write", Path: f.path, Err: syscall.EROFS}
}

func (f *File) Name() string {
	return f.stat.Name()
}

// Readdir reads the contents of a directory.
// With count <= 0 all remaining entries are returned and the error is nil.
// With count > 0 at most count entries are returned and io.EOF signals the end of the directory.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	var content []EntryHeader
	var err error
	if f.path == "" {
		content, err = f.fs.readRoot()
	} else {
		content, err = f.fs.readDir(f.firstCluster)
	}

	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	start := int(f.offset)
	if start > len(content) {
		start = len(content)
	}

	end := len(content)
	if count > 0 {
		if start == end {
			return nil, io.EOF
		}
		if start+count < end {
			end = start + count
		}
	}

	result := make([]os.FileInfo, 0, end-start)
	for _, entry := range content[start:end] {
		result = append(result, entry.FileInfo())
	}
	f.offset = int64(end)

	return result, nil
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.stat, nil
}

// Sync does nothing, there is never anything to flush.
func (f *File) Sync() error {
	return nil
}

func (f *File) Truncate(size int64) error {
	return &os.PathError{Op: "truncate", Path: f.path, Err: syscall.EROFS}
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
