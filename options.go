package romfat

import (
	"fmt"
	"strings"
	"time"

	"github.com/aligator/romfat/checkpoint"
	"github.com/aligator/romfat/fatfs"
)

// Defaults of a Volume created without options.
const (
	DefaultVolumeLabel = "ROMFAT"
	DefaultVolumeID    = 0x682b5a9e
	DefaultAttribute   = fatfs.AttrReadOnly
)

// DefaultTimestamp is written into all directory entries.
var DefaultTimestamp = time.Date(2013, 11, 5, 12, 31, 14, 0, time.UTC)

type options struct {
	totalSectors uint32
	label        [11]byte
	volumeID     uint32
	timestamp    time.Time
	attribute    byte
}

func defaultOptions() options {
	o := options{
		totalSectors: DefaultTotalSectors,
		volumeID:     DefaultVolumeID,
		timestamp:    DefaultTimestamp,
		attribute:    DefaultAttribute,
	}
	o.label, _ = makeLabel(DefaultVolumeLabel)
	return o
}

// Option changes how NewVolume builds the volume.
type Option func(*options) error

// WithTotalSectors sets the size of the volume in blocks.
// Values below FirstPayloadLBA cannot hold the fixed blocks and
// values above MaxTotalSectors cannot be described by one FAT sector.
func WithTotalSectors(n uint32) Option {
	return func(o *options) error {
		if n < FirstPayloadLBA {
			return checkpoint.Wrap(ErrInvalidGeometry, fmt.Errorf("%v sectors are less than the minimum of %v", n, FirstPayloadLBA))
		}
		if n > MaxTotalSectors {
			return checkpoint.Wrap(ErrInvalidGeometry, fmt.Errorf("%v sectors exceed the maximum of %v", n, MaxTotalSectors))
		}
		o.totalSectors = n
		return nil
	}
}

// WithVolumeLabel sets the label in the boot sector and the root directory.
// It has to be 1 to 11 printable ASCII characters which are allowed in short names or a space.
func WithVolumeLabel(label string) Option {
	return func(o *options) error {
		l, err := makeLabel(label)
		if err != nil {
			return err
		}
		o.label = l
		return nil
	}
}

func WithVolumeID(id uint32) Option {
	return func(o *options) error {
		o.volumeID = id
		return nil
	}
}

// WithTimestamp sets the creation, access and write time of all directory entries.
func WithTimestamp(t time.Time) Option {
	return func(o *options) error {
		o.timestamp = t
		return nil
	}
}

// WithFileAttribute sets the attribute byte of the payload files.
// Directory, volume label and long name bits are rejected.
func WithFileAttribute(attr byte) Option {
	return func(o *options) error {
		if attr&(fatfs.AttrDirectory|fatfs.AttrVolumeID) != 0 || attr&0xC0 != 0 {
			return checkpoint.Wrap(ErrInvalidAttr, fmt.Errorf("attribute 0x%02X", attr))
		}
		o.attribute = attr
		return nil
	}
}

func makeLabel(label string) ([11]byte, error) {
	var result [11]byte
	if len(label) == 0 || len(label) > len(result) || label[0] == ' ' {
		return result, checkpoint.Wrap(ErrInvalidLabel, fmt.Errorf("%q", label))
	}

	for i := 0; i < len(label); i++ {
		c := label[i]
		if c < 0x20 || c > 0x7E || strings.IndexByte(`"*+,./:;<=>?[\]|`, c) >= 0 {
			return result, checkpoint.Wrap(ErrInvalidLabel, fmt.Errorf("%q contains %q", label, c))
		}
	}

	copy(result[:], label)
	for i := len(label); i < len(result); i++ {
		result[i] = ' '
	}
	return result, nil
}

// ValidVolumeLabel checks label the same way WithVolumeLabel does.
func ValidVolumeLabel(label string) error {
	_, err := makeLabel(label)
	return err
}
