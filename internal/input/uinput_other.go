//go:build !linux

package input

import (
	"errors"

	"github.com/sweeney/gpio-keyboard/internal/logic"
)

// Uinput is not available on non-Linux platforms.
type Uinput struct{}

// NewUinput returns an error on non-Linux platforms.
func NewUinput(cfg Config, keys []logic.Key) (*Uinput, error) {
	return nil, errors.New("input: uinput not supported on this platform (requires Linux)")
}

// Report is not implemented on non-Linux platforms.
func (u *Uinput) Report(key logic.Key, pressed bool) error { return nil }

// Flush is not implemented on non-Linux platforms.
func (u *Uinput) Flush() error { return nil }

// Close is not implemented on non-Linux platforms.
func (u *Uinput) Close() error { return nil }
