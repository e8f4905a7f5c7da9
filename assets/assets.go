// Package assets embeds the default payloads of the volume.
package assets

import (
	_ "embed"

	"github.com/aligator/romfat"
)

var (
	//go:embed COPYING
	license []byte
	//go:embed README
	readme []byte
	//go:embed INDEX.HTM
	index []byte
)

// Default returns the payloads built into the binary.
func Default() romfat.StaticPayloads {
	return romfat.StaticPayloads{
		romfat.License: license,
		romfat.Readme:  readme,
		romfat.Index:   index,
	}
}
