package romfat

import (
	"fmt"
	"strings"

	"github.com/aligator/romfat/checkpoint"
	"github.com/aligator/romfat/fatfs"
	"github.com/aligator/romfat/logging"
)

// Volume holds the precomputed tables of the FAT12 volume and the payloads.
// It is immutable after NewVolume and may be shared.
type Volume struct {
	opts options

	boot   []byte
	fat    []byte
	root   []byte
	subdir []byte

	payloads [][]byte
	layout   []Region
	files    []FileEntry
	dropHere FileEntry
	regions  []Region
}

// NewVolume lays out the payloads of provider behind the fixed blocks and builds all tables.
// It fails with ErrVolumeTooSmall if the payloads do not fit into the configured sector count.
func NewVolume(provider PayloadProvider, opts ...Option) (*Volume, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	v := &Volume{
		opts: o,
	}

	v.regions = []Region{
		{Kind: RegionBoot, Name: "boot sector", Start: BootLBA, Blocks: 1, Size: SectorSize},
		{Kind: RegionFAT, Name: "FAT 1", Start: FirstFATLBA, Blocks: 1, Size: SectorSize},
		{Kind: RegionFAT, Name: "FAT 2", Start: SecondFATLBA, Blocks: 1, Size: SectorSize},
		{Kind: RegionRootDir, Name: "root directory", Start: RootDirLBA, Blocks: 1, Size: SectorSize},
		{Kind: RegionSubdir, Name: "DROPHERE", Start: DropHereLBA, Blocks: 1, Size: SectorSize},
	}

	name, err := fatfs.MakeShortName("DROPHERE")
	if err != nil {
		return nil, checkpoint.From(err)
	}
	v.dropHere = FileEntry{
		Name:         name,
		Attribute:    fatfs.AttrDirectory,
		StartCluster: lbaToCluster(DropHereLBA),
	}

	next := uint32(FirstPayloadLBA)
	for _, id := range PayloadIDs() {
		data := provider.Payload(id)
		name, err := fatfs.MakeShortName(id.FileName())
		if err != nil {
			return nil, checkpoint.From(err)
		}

		blocks := blocksFor(len(data))
		entry := FileEntry{
			Name:      name,
			Attribute: o.attribute,
			Size:      uint32(len(data)),
		}
		if blocks > 0 {
			entry.StartCluster = lbaToCluster(next)
		}

		region := Region{Kind: RegionPayload, Name: id.FileName(), Start: next, Blocks: blocks, Size: entry.Size}
		v.payloads = append(v.payloads, data)
		v.layout = append(v.layout, region)
		v.files = append(v.files, entry)
		v.regions = append(v.regions, region)
		next += blocks
	}

	if next > o.totalSectors {
		return nil, checkpoint.Wrap(ErrVolumeTooSmall, fmt.Errorf("payloads need %v sectors, volume has %v", next, o.totalSectors))
	}
	if next < o.totalSectors {
		v.regions = append(v.regions, Region{Kind: RegionFree, Name: "free", Start: next, Blocks: o.totalSectors - next})
	}

	v.boot = buildBootSector(o)
	v.fat = buildFAT(v.files)
	v.root = buildRootDirectory(o, v.Entries())
	v.subdir = buildSubdirectory(o)

	logging.Debug(logging.ComponentVolume, "volume created",
		"sectors", o.totalSectors,
		"used", next,
		"label", string(o.label[:]),
	)
	return v, nil
}

func (v *Volume) TotalSectors() uint32 {
	return v.opts.totalSectors
}

// TriggerLBA is the block whose write clears the enabled flag.
func (v *Volume) TriggerLBA() uint32 {
	return DropHereLBA
}

// Regions returns all regions ordered by their first block. Empty payloads have zero blocks.
func (v *Volume) Regions() []Region {
	return append([]Region(nil), v.regions...)
}

// Entries returns the root directory entries without the volume label, in on-disk order.
func (v *Volume) Entries() []FileEntry {
	return append(append([]FileEntry(nil), v.files...), v.dropHere)
}

// Label returns the volume label without padding.
func (v *Volume) Label() string {
	return strings.TrimRight(string(v.opts.label[:]), " ")
}

// ReadBlock fills dst with the content of block lba. dst must hold at least SectorSize bytes.
func (v *Volume) ReadBlock(lba uint32, dst []byte) error {
	if lba >= v.opts.totalSectors {
		return checkpoint.Wrap(ErrIllegalRequest, fmt.Errorf("block %v of %v", lba, v.opts.totalSectors))
	}
	if len(dst) < SectorSize {
		return checkpoint.From(fmt.Errorf("buffer of %v bytes is smaller than a block", len(dst)))
	}
	dst = dst[:SectorSize]

	switch lba {
	case BootLBA:
		copy(dst, v.boot)
		return nil
	case FirstFATLBA, SecondFATLBA:
		copy(dst, v.fat)
		return nil
	case RootDirLBA:
		copy(dst, v.root)
		return nil
	case DropHereLBA:
		copy(dst, v.subdir)
		return nil
	}

	for i, region := range v.layout {
		if region.Contains(lba) {
			readPayload(region, v.payloads[i], lba, dst)
			return nil
		}
	}

	zero(dst)
	return nil
}

// readPayload copies one block of data. Only the last block of a payload may be partial,
// it holds size - (blocks-1)*SectorSize bytes and is padded with zeros.
func readPayload(region Region, data []byte, lba uint32, dst []byte) {
	offset := int(lba-region.Start) * SectorSize
	size := SectorSize
	if lba == region.End()-1 {
		size = int(region.Size) - int(region.Blocks-1)*SectorSize
	}

	copy(dst, data[offset:offset+size])
	zero(dst[size:])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
