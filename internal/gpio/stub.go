//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/gpio-keyboard/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevReader is not available on non-Linux platforms.
type CdevReader struct{}

// OpenCdev returns an error on non-Linux platforms.
func OpenCdev(chip string, pins ...int) (*CdevReader, error) {
	return nil, errUnsupported
}

// Level is not implemented on non-Linux platforms.
func (r *CdevReader) Level(pin int) (logic.Level, error) {
	return logic.High, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *CdevReader) Close() error {
	return nil
}

// RPIOReader is not available on non-Linux platforms.
type RPIOReader struct{}

// OpenRPIO returns an error on non-Linux platforms.
func OpenRPIO(pins ...int) (*RPIOReader, error) {
	return nil, errUnsupported
}

// Level is not implemented on non-Linux platforms.
func (r *RPIOReader) Level(pin int) (logic.Level, error) {
	return logic.High, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RPIOReader) Close() error {
	return nil
}
