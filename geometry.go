package romfat

import (
	"fmt"

	"github.com/aligator/romfat/fatfs"
)

// SectorSize is the size of one logical block. Clusters are one block as well.
const SectorSize = 512

// Fixed block roles of the volume.
const (
	BootLBA         = 0
	FirstFATLBA     = 1
	SecondFATLBA    = 2
	RootDirLBA      = 3
	DropHereLBA     = 4
	FirstPayloadLBA = 5

	// firstDataLBA holds cluster 2.
	firstDataLBA = DropHereLBA
)

const (
	DefaultTotalSectors = 128
	RootEntries         = 16

	// MaxTotalSectors keeps every cluster addressable by the single FAT sector.
	MaxTotalSectors = firstDataLBA - 2 + fatfs.Entries12PerSector
)

// lbaToCluster maps a data block to its cluster number.
func lbaToCluster(lba uint32) uint16 {
	return uint16(lba - firstDataLBA + 2)
}

// blocksFor returns how many blocks size bytes need.
func blocksFor(size int) uint32 {
	return uint32((size + SectorSize - 1) / SectorSize)
}

// RegionKind is the role of a range of blocks.
type RegionKind int

const (
	RegionBoot RegionKind = iota
	RegionFAT
	RegionRootDir
	RegionSubdir
	RegionPayload
	RegionFree
)

func (k RegionKind) String() string {
	switch k {
	case RegionBoot:
		return "boot"
	case RegionFAT:
		return "fat"
	case RegionRootDir:
		return "root"
	case RegionSubdir:
		return "subdir"
	case RegionPayload:
		return "payload"
	case RegionFree:
		return "free"
	default:
		return fmt.Sprintf("RegionKind(%d)", int(k))
	}
}

// Region is a contiguous range of blocks with one role.
// Size is the number of meaningful bytes, which is less than Blocks*SectorSize
// for the last block of a payload.
type Region struct {
	Kind   RegionKind
	Name   string
	Start  uint32
	Blocks uint32
	Size   uint32
}

// End returns the first block after the region.
func (r Region) End() uint32 {
	return r.Start + r.Blocks
}

func (r Region) Contains(lba uint32) bool {
	return lba >= r.Start && lba < r.End()
}
