package fatfs

import "encoding/binary"

// ClusterEntry is the value of one FAT entry.
// FAT12 values are widened to the FAT16 range with Entry12, so the same checks work for both.
type ClusterEntry uint32

// Special FAT12 entry values.
const (
	Media12 = 0xFF8
	EOC12   = 0xFFF
	Bad12   = 0xFF7
)

// Entries12PerSector is the number of FAT12 entries one 512 byte sector can hold completely.
const Entries12PerSector = 512 * 2 / 3

// Entry12 widens a 12 bit entry. Everything from 0xFF0 up is reserved, bad or EOC in FAT12
// and is moved to the matching FAT16 value.
func Entry12(v uint16) ClusterEntry {
	v &= 0x0FFF
	if v >= 0xFF0 {
		return ClusterEntry(0xF000 | v)
	}
	return ClusterEntry(v)
}

func Entry16(v uint16) ClusterEntry {
	return ClusterEntry(v)
}

func (e ClusterEntry) Value() uint32 {
	return uint32(e)
}

func (e ClusterEntry) IsFree() bool {
	return e == 0
}

func (e ClusterEntry) IsReservedTemp() bool {
	return e == 1
}

// IsNextCluster reports whether the entry points to another cluster of the chain.
func (e ClusterEntry) IsNextCluster() bool {
	return e >= 2 && e <= 0xFFEF
}

func (e ClusterEntry) IsReservedSometimes() bool {
	return e >= 0xFFF0 && e <= 0xFFF6
}

func (e ClusterEntry) IsReserved() bool {
	return e.IsReservedTemp() || e.IsReservedSometimes()
}

func (e ClusterEntry) IsBad() bool {
	return e == 0xFFF7
}

// IsEOF reports whether the entry marks the last cluster of a chain.
func (e ClusterEntry) IsEOF() bool {
	return e >= 0xFFF8
}

// GetEntry12 reads the packed 12 bit entry of cluster n from a FAT12 table.
// Two entries share three bytes: the even one uses the low 12 bits, the odd one the high 12 bits.
func GetEntry12(table []byte, n uint32) uint16 {
	off := n + n/2
	v := binary.LittleEndian.Uint16(table[off : off+2])
	if n&1 == 1 {
		return v >> 4
	}
	return v & 0x0FFF
}

// PutEntry12 stores the 12 bit value v as entry of cluster n without touching its neighbour.
func PutEntry12(table []byte, n uint32, v uint16) {
	off := n + n/2
	if n&1 == 1 {
		table[off] = table[off]&0x0F | byte(v<<4)
		table[off+1] = byte(v >> 4)
		return
	}
	table[off] = byte(v)
	table[off+1] = table[off+1]&0xF0 | byte(v>>8)&0x0F
}
