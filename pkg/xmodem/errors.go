package xmodem

import "errors"

var (
	// ErrByteTimeout is returned by a ByteIO.ReadByte whose deadline elapsed
	// before a byte arrived.
	ErrByteTimeout = errors.New("xmodem: byte read timeout")
)
