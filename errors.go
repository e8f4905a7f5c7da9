package romfat

import "errors"

var (
	// ErrIllegalRequest is returned for blocks outside of the device.
	ErrIllegalRequest  = errors.New("illegal request: block address out of range")
	ErrVolumeTooSmall  = errors.New("volume is too small for the payloads")
	ErrNoBackend       = errors.New("no block device available")
	ErrInvalidLabel    = errors.New("invalid volume label")
	ErrInvalidGeometry = errors.New("invalid volume geometry")
	ErrInvalidAttr     = errors.New("invalid file attribute")
	ErrMedium          = errors.New("medium error")
	ErrLoadPayload     = errors.New("could not load payload")
)
