// File model contains the structs which match the direct structures of the FAT12 and FAT16 filesystem.

package fatfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
)

// Directory entry attributes.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

const (
	// BPBSize is the size of the BIOS parameter block shared by all FAT types.
	BPBSize = 36
	// ExtendedBPBSize is the size of the FAT12/FAT16 extended boot record following the BPB.
	ExtendedBPBSize = 26
	// BootCodeOffset is where the boot program starts on a FAT12/FAT16 volume.
	BootCodeOffset = BPBSize + ExtendedBPBSize
	// EntrySize is the size of one short directory entry.
	EntrySize = 32
	// ExtendedBootSignature marks a valid extended boot record.
	ExtendedBootSignature = 0x29
)

// Special first bytes of a directory entry name.
const (
	entryEnd  = 0x00
	entryFree = 0xE5
)

var ErrInvalidName = errors.New("invalid 8.3 name")

type BPB struct {
	BSJumpBoot          [3]byte
	BSOEMName           [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	NumFATs             byte
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
}

// FAT16SpecificData is the extended boot record of FAT12 and FAT16 volumes.
type FAT16SpecificData struct {
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSignature  byte
	BSVolumeID       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

type EntryHeader struct {
	Name            [11]byte
	Attribute       byte
	NTReserved      byte
	CreateTimeTenth byte
	CreateTime      uint16
	CreateDate      uint16
	LastAccessDate  uint16
	FirstClusterHI  uint16
	WriteTime       uint16
	WriteDate       uint16
	FirstClusterLO  uint16
	FileSize        uint32
}

// ParseEntry decodes a single 32 byte directory entry.
func ParseEntry(data []byte) (EntryHeader, error) {
	var h EntryHeader
	err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h)
	return h, err
}

// Bytes encodes the entry in its on-disk form.
func (h EntryHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, EntrySize))
	// Writing a fixed size struct to a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, h)
	return buf.Bytes()
}

// FirstCluster combines the high and low cluster words.
func (h EntryHeader) FirstCluster() uint32 {
	return uint32(h.FirstClusterHI)<<16 | uint32(h.FirstClusterLO)
}

func (h EntryHeader) IsDir() bool {
	return h.Attribute&AttrDirectory == AttrDirectory
}

func (h EntryHeader) IsLongName() bool {
	return h.Attribute&AttrLongName == AttrLongName
}

func (h EntryHeader) IsVolumeLabel() bool {
	return !h.IsLongName() && h.Attribute&AttrVolumeID == AttrVolumeID
}

// IsDotEntry reports whether this is the "." or ".." entry of a subdirectory.
func (h EntryHeader) IsDotEntry() bool {
	return h.Name[0] == '.'
}

// ShortName returns the name as "NAME.EXT" with the padding removed.
func (h EntryHeader) ShortName() string {
	name := strings.TrimRight(string(h.Name[:8]), " ")
	ext := strings.TrimRight(string(h.Name[8:11]), " ")

	// 0x05 stands for a real 0xE5 in the first character.
	if len(name) > 0 && name[0] == 0x05 {
		name = "\xe5" + name[1:]
	}

	if ext != "" {
		name += "."
	}

	return name + ext
}

// MakeShortName converts a name like "INDEX.HTM" into its padded 11 byte on-disk form.
// Only plain ASCII 8.3 characters are accepted. Lowercase letters are upper-cased.
func MakeShortName(name string) ([11]byte, error) {
	var result [11]byte
	for i := range result {
		result[i] = ' '
	}

	if name == "." || name == ".." {
		copy(result[:], name)
		return result, nil
	}

	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		base, ext = name[:i], name[i+1:]
	}

	if len(base) == 0 || len(base) > 8 || len(ext) > 3 {
		return result, ErrInvalidName
	}

	upper := []byte(base + ext)
	for i, c := range upper {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
			upper[i] = c
		}
		if !validShortNameChar(c) {
			return result, ErrInvalidName
		}
	}

	copy(result[:8], upper[:len(base)])
	copy(result[8:], upper[len(base):])
	return result, nil
}

func validShortNameChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'()-@^_`{}~", c) >= 0
}
