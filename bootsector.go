package romfat

import (
	"bytes"
	"encoding/binary"

	"github.com/aligator/romfat/fatfs"
)

// bootStub prints bootMessage through the BIOS, waits for a key and calls int 19h.
// It expects the message directly after itself, at 0x7C5B once loaded.
var bootStub = []byte{
	0x0e,             // push cs
	0x1f,             // pop ds
	0xbe, 0x5b, 0x7c, // mov si, offset message
	0xac,             // 1: lodsb
	0x22, 0xc0,       // and al, al
	0x74, 0x0b,       // jz 2f
	0x56,             // push si
	0xb4, 0x0e,       // mov ah, 0eh
	0xbb, 0x07, 0x00, // mov bx, 0007h
	0xcd, 0x10,       // int 10h
	0x5e,             // pop si
	0xeb, 0xf0,       // jmp 1b
	0x32, 0xe4,       // 2: xor ah, ah
	0xcd, 0x16,       // int 16h
	0xcd, 0x19,       // int 19h
	0xeb, 0xfe,       // 3: jmp 3b
}

const bootMessage = "This is not a bootable disk.  Please insert a bootable floppy and\r\npress any key to try again ... \r\n\x00"

func buildBootSector(o options) []byte {
	bpb := fatfs.BPB{
		BSJumpBoot:          [3]byte{0xEB, 0x3C, 0x90},
		BSOEMName:           [8]byte{'m', 'k', 'd', 'o', 's', 'f', 's', 0},
		BytesPerSector:      SectorSize,
		SectorsPerCluster:   1,
		ReservedSectorCount: 1,
		NumFATs:             2,
		RootEntryCount:      RootEntries,
		TotalSectors16:      uint16(o.totalSectors),
		Media:               0xF8,
		FATSize16:           1,
		SectorsPerTrack:     32,
		NumberOfHeads:       64,
	}
	ext := fatfs.FAT16SpecificData{
		BSBootSignature:  fatfs.ExtendedBootSignature,
		BSVolumeID:       o.volumeID,
		BSVolumeLabel:    o.label,
		BSFileSystemType: [8]byte{'F', 'A', 'T', '1', '2', ' ', ' ', ' '},
	}

	buf := bytes.NewBuffer(make([]byte, 0, SectorSize))
	// Writes into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, bpb)
	_ = binary.Write(buf, binary.LittleEndian, ext)
	buf.Write(bootStub)
	buf.WriteString(bootMessage)

	sector := make([]byte, SectorSize)
	copy(sector, buf.Bytes())
	sector[510] = 0x55
	sector[511] = 0xAA
	return sector
}
