package romfat

import (
	"fmt"
	"path/filepath"

	"github.com/aligator/romfat/checkpoint"
	"github.com/spf13/afero"
)

// PayloadID names one of the documents on the volume.
type PayloadID int

// The payloads in the order they are laid out on the volume.
const (
	License PayloadID = iota
	Readme
	Index
)

// PayloadIDs lists all payloads in volume order.
func PayloadIDs() []PayloadID {
	return []PayloadID{License, Readme, Index}
}

// FileName is the 8.3 name of the payload in the root directory.
func (id PayloadID) FileName() string {
	switch id {
	case License:
		return "COPYING"
	case Readme:
		return "README"
	case Index:
		return "INDEX.HTM"
	default:
		return ""
	}
}

func (id PayloadID) String() string {
	switch id {
	case License:
		return "license"
	case Readme:
		return "readme"
	case Index:
		return "index"
	default:
		return fmt.Sprintf("PayloadID(%d)", int(id))
	}
}

// PayloadProvider supplies the bytes of each payload.
// The returned slices must not change while a Volume uses them.
type PayloadProvider interface {
	Payload(id PayloadID) []byte
}

// StaticPayloads is a PayloadProvider backed by a map. Missing payloads are empty.
type StaticPayloads map[PayloadID][]byte

func (p StaticPayloads) Payload(id PayloadID) []byte {
	return p[id]
}

// LoadPayloads reads COPYING, README and INDEX.HTM from dir.
// All three files have to exist.
func LoadPayloads(fs afero.Fs, dir string) (StaticPayloads, error) {
	result := make(StaticPayloads, len(PayloadIDs()))
	for _, id := range PayloadIDs() {
		data, err := afero.ReadFile(fs, filepath.Join(dir, id.FileName()))
		if err != nil {
			return nil, checkpoint.Wrap(err, ErrLoadPayload)
		}
		result[id] = data
	}
	return result, nil
}
