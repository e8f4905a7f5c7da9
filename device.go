package romfat

import (
	"fmt"
	"io"
	"os"

	"github.com/aligator/romfat/checkpoint"
	"github.com/aligator/romfat/logging"
	"github.com/spf13/afero"
)

// BlockDevice is what the SCSI layer reads from and writes to, one block per call.
type BlockDevice interface {
	// Read returns block lba. The slice may be reused by the next call.
	Read(lba uint32) ([]byte, error)
	Write(lba uint32, data []byte) error
	Stop(code uint8)
	BlockCount() uint32
}

// Image is the backing storage of a Passthrough, for example an afero.File.
type Image interface {
	io.ReaderAt
	io.WriterAt
}

// Passthrough is a BlockDevice on top of a disk image, used once the synthetic volume is disabled.
type Passthrough struct {
	image  Image
	blocks uint32
	hook   SessionHook
	closer io.Closer

	scratch [SectorSize]byte
}

// NewPassthrough serves the first size/SectorSize blocks of image. hook may be nil.
func NewPassthrough(image Image, size int64, hook SessionHook) *Passthrough {
	return &Passthrough{
		image:  image,
		blocks: uint32(size / SectorSize),
		hook:   hook,
	}
}

// OpenPassthrough opens the image at path read-write. Close releases it.
func OpenPassthrough(fs afero.Fs, path string, hook SessionHook) (*Passthrough, error) {
	file, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrMedium)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, checkpoint.Wrap(err, ErrMedium)
	}
	if info.Size() < SectorSize {
		_ = file.Close()
		return nil, checkpoint.Wrap(ErrInvalidGeometry, fmt.Errorf("image %v has only %v bytes", path, info.Size()))
	}

	p := NewPassthrough(file, info.Size(), hook)
	p.closer = file
	return p, nil
}

func (p *Passthrough) Read(lba uint32) ([]byte, error) {
	if lba >= p.blocks {
		return nil, checkpoint.Wrap(ErrIllegalRequest, fmt.Errorf("block %v of %v", lba, p.blocks))
	}

	if _, err := p.image.ReadAt(p.scratch[:], int64(lba)*SectorSize); err != nil {
		return nil, checkpoint.Wrap(err, ErrMedium)
	}
	return p.scratch[:], nil
}

// Write stores exactly one block.
func (p *Passthrough) Write(lba uint32, data []byte) error {
	if lba >= p.blocks {
		return checkpoint.Wrap(ErrIllegalRequest, fmt.Errorf("block %v of %v", lba, p.blocks))
	}
	if len(data) != SectorSize {
		return checkpoint.Wrap(ErrIllegalRequest, fmt.Errorf("write of %v bytes", len(data)))
	}

	if _, err := p.image.WriteAt(data, int64(lba)*SectorSize); err != nil {
		return checkpoint.Wrap(err, ErrMedium)
	}
	return nil
}

func (p *Passthrough) Stop(code uint8) {
	logging.Info(logging.ComponentResolver, "stop", "code", code, "device", "passthrough")
	if p.hook != nil {
		p.hook.SessionStopped(code)
	}
}

func (p *Passthrough) BlockCount() uint32 {
	return p.blocks
}

// Close closes the image if it was opened by OpenPassthrough.
func (p *Passthrough) Close() error {
	if p.closer == nil {
		return nil
	}
	return checkpoint.From(p.closer.Close())
}

// Select decides once per session which device serves the host:
// the synthetic volume while enabled, otherwise the override.
func Select(enabled bool, synthetic, override BlockDevice) (BlockDevice, error) {
	if enabled && synthetic != nil {
		return synthetic, nil
	}
	if override != nil {
		return override, nil
	}
	return nil, checkpoint.From(ErrNoBackend)
}
