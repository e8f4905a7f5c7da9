package romfat

import (
	"github.com/aligator/romfat/fatfs"
)

// FileEntry describes one entry of the root directory.
type FileEntry struct {
	Name         [11]byte
	Attribute    byte
	StartCluster uint16
	Size         uint32
}

// ShortName returns the name in its "NAME.EXT" form.
func (e FileEntry) ShortName() string {
	return fatfs.EntryHeader{Name: e.Name}.ShortName()
}

func (o options) entryHeader(name [11]byte, attr byte, cluster uint16, size uint32) fatfs.EntryHeader {
	date := fatfs.FormatDate(o.timestamp)
	tod := fatfs.FormatTime(o.timestamp)
	return fatfs.EntryHeader{
		Name:           name,
		Attribute:      attr,
		CreateTime:     tod,
		CreateDate:     date,
		LastAccessDate: date,
		WriteTime:      tod,
		WriteDate:      date,
		FirstClusterLO: cluster,
		FileSize:       size,
	}
}

func writeEntries(headers []fatfs.EntryHeader) []byte {
	sector := make([]byte, SectorSize)
	for i, h := range headers {
		copy(sector[i*fatfs.EntrySize:], h.Bytes())
	}
	return sector
}

// buildRootDirectory writes the label, the given entries and nothing else.
func buildRootDirectory(o options, entries []FileEntry) []byte {
	headers := []fatfs.EntryHeader{o.entryHeader(o.label, fatfs.AttrVolumeID, 0, 0)}
	for _, e := range entries {
		headers = append(headers, o.entryHeader(e.Name, e.Attribute, e.StartCluster, e.Size))
	}
	return writeEntries(headers)
}

// buildSubdirectory writes "." and ".." of DROPHERE. ".." uses cluster 0 for the root.
func buildSubdirectory(o options) []byte {
	dot, _ := fatfs.MakeShortName(".")
	dotdot, _ := fatfs.MakeShortName("..")
	return writeEntries([]fatfs.EntryHeader{
		o.entryHeader(dot, fatfs.AttrDirectory, lbaToCluster(DropHereLBA), 0),
		o.entryHeader(dotdot, fatfs.AttrDirectory, 0, 0),
	})
}
