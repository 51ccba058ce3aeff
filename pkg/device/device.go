// Package device defines the byte-addressable non-volatile memory the record
// lives in, and ships the host-side implementations used by the CLI and the
// tests.
package device

import (
	"context"
	"fmt"
)

// Device is a fixed-size block of byte-addressable non-volatile memory.
//
// Write may skip bytes that already hold the value being written. The commit
// protocol relies on that to rewrite a single field without disturbing the
// rest of the record. WaitReady blocks until a previous write has finished;
// implementations must honour ctx so callers can bound the wait.
type Device interface {
	Read(ctx context.Context, off int64, n int) ([]byte, error)
	Write(ctx context.Context, off int64, p []byte) error
	WaitReady(ctx context.Context) error
	Size() int64
	Close() error
}

// ErasedByte is the value of a cell that has never been written.
const ErasedByte = 0xFF

// Errors
var (
	ErrOutOfRange = &DeviceError{"access outside device bounds"}
	ErrClosed     = &DeviceError{"device is closed"}
	ErrPowerLoss  = &DeviceError{"power lost during write"}
)

// DeviceError represents a device access error
type DeviceError struct {
	Message string
}

func (e *DeviceError) Error() string {
	return e.Message
}

// CheckRange returns ErrOutOfRange unless [off, off+n) lies inside a device of
// the given size.
func CheckRange(size, off int64, n int) error {
	if off < 0 || n < 0 || off > size || int64(n) > size-off {
		return fmt.Errorf("%w: offset %d length %d size %d", ErrOutOfRange, off, n, size)
	}
	return nil
}

func erased(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ErasedByte
	}
	return buf
}
