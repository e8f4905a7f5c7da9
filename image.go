package romfat

import (
	"errors"
	"io"

	"github.com/aligator/romfat/checkpoint"
)

var errNegativeOffset = errors.New("negative offset")

// ImageReader exposes a BlockDevice as a flat image, so it can be mounted by fatfs.New.
type ImageReader struct {
	dev    BlockDevice
	offset int64
}

func NewImageReader(dev BlockDevice) *ImageReader {
	return &ImageReader{dev: dev}
}

// Size is the image size in bytes.
func (r *ImageReader) Size() int64 {
	return int64(r.dev.BlockCount()) * SectorSize
}

func (r *ImageReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, checkpoint.From(errNegativeOffset)
	}

	n := 0
	for n < len(p) {
		pos := off + int64(n)
		if pos >= r.Size() {
			return n, io.EOF
		}

		block, err := r.dev.Read(uint32(pos / SectorSize))
		if err != nil {
			return n, err
		}
		n += copy(p[n:], block[pos%SectorSize:])
	}
	return n, nil
}

func (r *ImageReader) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.offset)
	r.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (r *ImageReader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += r.offset
	case io.SeekEnd:
		offset += r.Size()
	default:
		return r.offset, checkpoint.From(errors.New("invalid whence"))
	}

	if offset < 0 {
		return r.offset, checkpoint.From(errNegativeOffset)
	}
	r.offset = offset
	return offset, nil
}

// WriteImage writes every block of dev to w and returns the number of bytes written.
func WriteImage(w io.Writer, dev BlockDevice) (int64, error) {
	var written int64
	for lba := uint32(0); lba < dev.BlockCount(); lba++ {
		block, err := dev.Read(lba)
		if err != nil {
			return written, err
		}

		n, err := w.Write(block)
		written += int64(n)
		if err != nil {
			return written, checkpoint.From(err)
		}
	}
	return written, nil
}
