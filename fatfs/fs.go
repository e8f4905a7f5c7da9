// Package fatfs mounts FAT12 and FAT16 volumes read-only as afero.Fs and
// provides the on-disk structures used to build such volumes.
package fatfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aligator/romfat/checkpoint"
	"github.com/spf13/afero"
)

// FSType is the FAT variant of a mounted volume.
type FSType uint8

const (
	FAT12 FSType = iota + 1
	FAT16
)

func (t FSType) String() string {
	switch t {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	default:
		return "unknown"
	}
}

// Cluster count limits of the FAT format, which decide the FAT type.
const (
	maxClusters12 = 4084
	maxClusters16 = 65524
)

// These errors may occur while mounting a volume.
var (
	ErrNotFAT        = errors.New("not a FAT filesystem")
	ErrUnsupportedFS = errors.New("unsupported FAT type")
	ErrClusterLoop   = errors.New("cluster chain does not terminate")
)

// Info contains all information about the whole filesystem.
type Info struct {
	FSType            FSType
	SectorSize        uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	FATSize           uint32
	RootEntryCount    uint16
	FirstRootSector   uint32
	RootSectors       uint32
	FirstDataSector   uint32
	TotalSectors      uint32
	ClusterCount      uint32
	VolumeID          uint32
}

// Sector caches the last sector read from the device.
type Sector struct {
	current uint32
	valid   bool
	buffer  []byte
}

// Fs is a read-only afero.Fs on top of a FAT12 or FAT16 image.
// It is safe for concurrent use.
type Fs struct {
	lock        sync.Mutex
	reader      io.ReadSeeker
	info        Info
	label       string
	sectorCache Sector
}

// New mounts the FAT volume which starts at offset 0 of the reader.
func New(reader io.ReadSeeker) (*Fs, error) {
	fs := &Fs{
		reader: reader,
	}

	if err := fs.initialize(); err != nil {
		return nil, err
	}

	return fs, nil
}

func (fs *Fs) initialize() error {
	// The BPB is always inside the first 512 bytes, so use that size until the real one is known.
	fs.info.SectorSize = 512
	fs.sectorCache.buffer = make([]byte, 512)

	if err := fs.fetch(0); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return checkpoint.Wrap(err, ErrNotFAT)
	}

	sector := fs.sectorCache.buffer
	r := bytes.NewReader(sector)

	bpb := BPB{}
	if err := binary.Read(r, binary.LittleEndian, &bpb); err != nil {
		return checkpoint.Wrap(err, ErrNotFAT)
	}
	ext := FAT16SpecificData{}
	if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
		return checkpoint.Wrap(err, ErrNotFAT)
	}

	if err := validateBPB(bpb, sector); err != nil {
		return err
	}

	if bpb.FATSize16 == 0 {
		// Only FAT32 stores its FAT size in the FAT32 specific part.
		return checkpoint.Wrap(ErrUnsupportedFS, fmt.Errorf("FAT32 is not supported"))
	}

	info := Info{
		SectorSize:        bpb.BytesPerSector,
		SectorsPerCluster: bpb.SectorsPerCluster,
		ReservedSectors:   bpb.ReservedSectorCount,
		NumFATs:           bpb.NumFATs,
		FATSize:           uint32(bpb.FATSize16),
		RootEntryCount:    bpb.RootEntryCount,
		TotalSectors:      uint32(bpb.TotalSectors16),
	}
	if info.TotalSectors == 0 {
		info.TotalSectors = bpb.TotalSectors32
	}

	ss := uint32(info.SectorSize)
	info.RootSectors = (uint32(info.RootEntryCount)*EntrySize + ss - 1) / ss
	info.FirstRootSector = uint32(info.ReservedSectors) + uint32(info.NumFATs)*info.FATSize
	info.FirstDataSector = info.FirstRootSector + info.RootSectors

	if info.FirstDataSector >= info.TotalSectors {
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("no data region: first data sector %v, total sectors %v", info.FirstDataSector, info.TotalSectors))
	}

	info.ClusterCount = (info.TotalSectors - info.FirstDataSector) / uint32(info.SectorsPerCluster)
	switch {
	case info.ClusterCount <= maxClusters12:
		info.FSType = FAT12
	case info.ClusterCount <= maxClusters16:
		info.FSType = FAT16
	default:
		return checkpoint.Wrap(ErrUnsupportedFS, fmt.Errorf("%v clusters", info.ClusterCount))
	}

	if ext.BSBootSignature == ExtendedBootSignature {
		info.VolumeID = ext.BSVolumeID
		fs.label = strings.TrimRight(string(ext.BSVolumeLabel[:]), " ")
	}

	fs.info = info
	if len(fs.sectorCache.buffer) != int(ss) {
		fs.sectorCache = Sector{buffer: make([]byte, ss)}
	}

	// The volume label entry in the root directory wins over the boot sector copy.
	label, found, err := fs.rootLabel()
	if err != nil {
		return err
	}
	if found {
		fs.label = label
	}

	return nil
}

func validateBPB(bpb BPB, sector []byte) error {
	// Check for valid jump instructions.
	if !(bpb.BSJumpBoot[0] == 0xEB && bpb.BSJumpBoot[2] == 0x90) && bpb.BSJumpBoot[0] != 0xE9 {
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("no valid jump instructions at the beginning"))
	}

	if sector[510] != 0x55 || sector[511] != 0xAA {
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("missing boot sector signature"))
	}

	switch bpb.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("invalid sector size %v", bpb.BytesPerSector))
	}

	// Sectors per cluster has to be a power of two and the cluster must not exceed 32K.
	spc := bpb.SectorsPerCluster
	if spc == 0 || spc&(spc-1) != 0 || uint32(bpb.BytesPerSector)*uint32(spc) > 32*1024 {
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("invalid sectors per cluster %v", spc))
	}

	if bpb.ReservedSectorCount == 0 {
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("invalid reserved sector count"))
	}

	if bpb.NumFATs == 0 {
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("no FAT"))
	}

	if bpb.Media != 0xF0 && bpb.Media < 0xF8 {
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("invalid media value 0x%02X", bpb.Media))
	}

	if bpb.TotalSectors16 == 0 && bpb.TotalSectors32 == 0 {
		return checkpoint.Wrap(ErrNotFAT, fmt.Errorf("total sector count is 0"))
	}

	return nil
}

// Label returns the volume label.
func (fs *Fs) Label() string {
	return fs.label
}

// FSType returns whether the volume is FAT12 or FAT16.
func (fs *Fs) FSType() FSType {
	return fs.info.FSType
}

// Info returns the geometry of the mounted volume.
func (fs *Fs) Info() Info {
	return fs.info
}

// fetch loads a specific single sector into the sector cache.
func (fs *Fs) fetch(sector uint32) error {
	if fs.sectorCache.valid && sector == fs.sectorCache.current {
		return nil
	}

	_, err := fs.reader.Seek(int64(sector)*int64(fs.info.SectorSize), io.SeekStart)
	if err != nil {
		return checkpoint.From(err)
	}

	fs.sectorCache.valid = false
	_, err = io.ReadFull(fs.reader, fs.sectorCache.buffer)
	if err != nil {
		return checkpoint.From(err)
	}

	fs.sectorCache.current = sector
	fs.sectorCache.valid = true
	return nil
}

// readSectors returns a copy of count sectors starting at sector.
func (fs *Fs) readSectors(sector, count uint32) ([]byte, error) {
	result := make([]byte, 0, int(count)*int(fs.info.SectorSize))
	for i := uint32(0); i < count; i++ {
		if err := fs.fetch(sector + i); err != nil {
			return nil, err
		}
		result = append(result, fs.sectorCache.buffer...)
	}
	return result, nil
}

// readBytes reads length bytes from an absolute byte offset, possibly crossing sector boundaries.
func (fs *Fs) readBytes(offset int64, length int) ([]byte, error) {
	ss := int64(fs.info.SectorSize)
	first := offset / ss
	last := (offset + int64(length) - 1) / ss

	data, err := fs.readSectors(uint32(first), uint32(last-first+1))
	if err != nil {
		return nil, err
	}

	start := offset - first*ss
	return data[start : start+int64(length)], nil
}

func (fs *Fs) getFatEntry(cluster uint32) (ClusterEntry, error) {
	fatStart := int64(fs.info.ReservedSectors) * int64(fs.info.SectorSize)

	if fs.info.FSType == FAT12 {
		data, err := fs.readBytes(fatStart+int64(cluster+cluster/2), 2)
		if err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint16(data)
		if cluster&1 == 1 {
			return Entry12(v >> 4), nil
		}
		return Entry12(v), nil
	}

	data, err := fs.readBytes(fatStart+int64(cluster)*2, 2)
	if err != nil {
		return 0, err
	}
	return Entry16(binary.LittleEndian.Uint16(data)), nil
}

func (fs *Fs) clusterToSector(cluster uint32) uint32 {
	return fs.info.FirstDataSector + (cluster-2)*uint32(fs.info.SectorsPerCluster)
}

func (fs *Fs) clusterSize() int64 {
	return int64(fs.info.SectorsPerCluster) * int64(fs.info.SectorSize)
}

// chain returns all clusters of the chain starting at cluster.
func (fs *Fs) chain(cluster uint32) ([]uint32, error) {
	var result []uint32
	limit := fs.info.ClusterCount + 2

	for cluster >= 2 && cluster < limit {
		if uint32(len(result)) > fs.info.ClusterCount {
			return nil, checkpoint.From(ErrClusterLoop)
		}
		result = append(result, cluster)

		next, err := fs.getFatEntry(cluster)
		if err != nil {
			return nil, err
		}
		if !next.IsNextCluster() {
			break
		}
		cluster = next.Value()
	}

	return result, nil
}

func (fs *Fs) readCluster(cluster uint32) ([]byte, error) {
	return fs.readSectors(fs.clusterToSector(cluster), uint32(fs.info.SectorsPerCluster))
}

// parseEntries decodes directory entries until the end marker.
// Free, long name and volume label entries are skipped, and so are "." and "..".
// The returned bool is true if the end marker was found.
func parseEntries(data []byte) ([]EntryHeader, bool, error) {
	var result []EntryHeader
	for off := 0; off+EntrySize <= len(data); off += EntrySize {
		switch data[off] {
		case entryEnd:
			return result, true, nil
		case entryFree:
			continue
		}

		entry, err := ParseEntry(data[off : off+EntrySize])
		if err != nil {
			return nil, false, checkpoint.Wrap(err, ErrReadDir)
		}

		if entry.IsLongName() || entry.IsVolumeLabel() || entry.IsDotEntry() {
			continue
		}
		result = append(result, entry)
	}
	return result, false, nil
}

func (fs *Fs) readRoot() ([]EntryHeader, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	data, err := fs.readSectors(fs.info.FirstRootSector, fs.info.RootSectors)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	entries, _, err := parseEntries(data)
	return entries, err
}

func (fs *Fs) rootLabel() (string, bool, error) {
	data, err := fs.readSectors(fs.info.FirstRootSector, fs.info.RootSectors)
	if err != nil {
		return "", false, checkpoint.Wrap(err, ErrReadDir)
	}

	for off := 0; off+EntrySize <= len(data) && data[off] != entryEnd; off += EntrySize {
		if data[off] == entryFree {
			continue
		}
		entry, err := ParseEntry(data[off : off+EntrySize])
		if err != nil {
			return "", false, checkpoint.Wrap(err, ErrReadDir)
		}
		if entry.IsVolumeLabel() {
			return strings.TrimRight(string(entry.Name[:]), " "), true, nil
		}
	}

	return "", false, nil
}

func (fs *Fs) readDir(cluster uint32) ([]EntryHeader, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	clusters, err := fs.chain(cluster)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	var result []EntryHeader
	for _, c := range clusters {
		data, err := fs.readCluster(c)
		if err != nil {
			return nil, checkpoint.Wrap(err, ErrReadDir)
		}

		entries, end, err := parseEntries(data)
		if err != nil {
			return nil, err
		}
		result = append(result, entries...)
		if end {
			break
		}
	}

	return result, nil
}

// readFileAt reads up to readSize bytes at offset of the file which starts at cluster.
// It returns io.EOF together with the data if the end of the file was reached before readSize bytes.
func (fs *Fs) readFileAt(cluster uint32, fileSize int64, offset int64, readSize int64) ([]byte, error) {
	if offset >= fileSize {
		return nil, io.EOF
	}

	var eof error
	if offset+readSize > fileSize {
		readSize = fileSize - offset
		eof = io.EOF
	}

	fs.lock.Lock()
	defer fs.lock.Unlock()

	clusters, err := fs.chain(cluster)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadFile)
	}

	cs := fs.clusterSize()
	if int64(len(clusters))*cs < fileSize {
		return nil, checkpoint.Wrap(ErrReadFile, fmt.Errorf("cluster chain of %v clusters is too short for %v bytes", len(clusters), fileSize))
	}

	result := make([]byte, 0, readSize)
	for pos := offset; pos < offset+readSize; {
		data, err := fs.readCluster(clusters[pos/cs])
		if err != nil {
			return result, checkpoint.Wrap(err, ErrReadFile)
		}

		start := pos % cs
		end := cs
		if remaining := offset + readSize - pos; start+remaining < end {
			end = start + remaining
		}

		result = append(result, data[start:end]...)
		pos += end - start
	}

	return result, eof
}

// find resolves a slash separated path. Names are compared case-insensitive like DOS does.
func (fs *Fs) find(name string) (*File, error) {
	name = strings.Trim(path.Clean("/"+name), "/")

	root := &File{
		fs:          fs,
		path:        "",
		isDirectory: true,
		stat:        rootFileInfo{},
	}
	if name == "" {
		return root, nil
	}

	current := root
	for _, part := range strings.Split(name, "/") {
		if !current.isDirectory {
			return nil, syscall.ENOTDIR
		}

		var entries []EntryHeader
		var err error
		if current.path == "" {
			entries, err = fs.readRoot()
		} else {
			entries, err = fs.readDir(current.firstCluster)
		}
		if err != nil {
			return nil, err
		}

		var next *File
		for _, entry := range entries {
			if strings.EqualFold(entry.ShortName(), part) {
				next = newFile(fs, path.Join(current.path, entry.ShortName()), entry)
				break
			}
		}
		if next == nil {
			return nil, os.ErrNotExist
		}
		current = next
	}

	return current, nil
}

func (fs *Fs) Open(name string) (afero.File, error) {
	file, err := fs.find(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return file, nil
}

// OpenFile opens a file for reading. Any flag which would modify the volume fails with EROFS.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: syscall.EROFS}
	}
	return fs.Open(name)
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	file, err := fs.find(name)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}
	return file.stat, nil
}

func (fs *Fs) Name() string {
	return "fatfs"
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, &os.PathError{Op: "create", Path: name, Err: syscall.EROFS}
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: name, Err: syscall.EROFS}
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return &os.PathError{Op: "mkdir", Path: path, Err: syscall.EROFS}
}

func (fs *Fs) Remove(name string) error {
	return &os.PathError{Op: "remove", Path: name, Err: syscall.EROFS}
}

func (fs *Fs) RemoveAll(path string) error {
	return &os.PathError{Op: "remove", Path: path, Err: syscall.EROFS}
}

func (fs *Fs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: syscall.EROFS}
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return &os.PathError{Op: "chmod", Path: name, Err: syscall.EROFS}
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return &os.PathError{Op: "chown", Path: name, Err: syscall.EROFS}
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return &os.PathError{Op: "chtimes", Path: name, Err: syscall.EROFS}
}
