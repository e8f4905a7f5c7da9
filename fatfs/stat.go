package fatfs

import (
	"os"
	"time"
)

// FileInfo returns the os.FileInfo view of a directory entry.
func (h EntryHeader) FileInfo() os.FileInfo {
	return entryHeaderFileInfo{h}
}

type entryHeaderFileInfo struct {
	entry EntryHeader
}

func (e entryHeaderFileInfo) Name() string {
	return e.entry.ShortName()
}

func (e entryHeaderFileInfo) Size() int64 {
	if e.IsDir() {
		return 0
	}
	return int64(e.entry.FileSize)
}

// Mode reports directories as 0555 and files as 0444, since the volume can not be written.
func (e entryHeaderFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0555
	}
	return 0444
}

func (e entryHeaderFileInfo) ModTime() time.Time {
	writeDate := ParseDate(e.entry.WriteDate)
	writeTime := ParseTime(e.entry.WriteTime)

	// An invalid date results in time.Time{}. The time alone can not be checked that way
	// because midnight is a valid time.
	if writeDate.IsZero() {
		return time.Time{}
	}

	return time.Date(writeDate.Year(), writeDate.Month(), writeDate.Day(), writeTime.Hour(), writeTime.Minute(), writeTime.Second(), 0, time.UTC)
}

func (e entryHeaderFileInfo) IsDir() bool {
	return e.entry.IsDir()
}

func (e entryHeaderFileInfo) Sys() interface{} {
	return e.entry
}

// rootFileInfo describes the root directory, which has no directory entry of its own.
type rootFileInfo struct{}

func (rootFileInfo) Name() string       { return "." }
func (rootFileInfo) Size() int64        { return 0 }
func (rootFileInfo) Mode() os.FileMode  { return os.ModeDir | 0555 }
func (rootFileInfo) ModTime() time.Time { return time.Time{} }
func (rootFileInfo) IsDir() bool        { return true }
func (rootFileInfo) Sys() interface{}   { return nil }
