package msc

import "errors"

var (
	// ErrInvalidCBW is returned when the stream does not start with a valid command block wrapper.
	// The transport cannot recover from it because the framing is lost.
	ErrInvalidCBW = errors.New("invalid command block wrapper")
	ErrTransport  = errors.New("transport error")
)
