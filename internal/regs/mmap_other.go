//go:build !linux

package regs

import "fmt"

// GPIOMem is the kernel's GPIO-only view of physical memory.
const GPIOMem = "/dev/gpiomem"

// Mapping is not available on non-Linux platforms.
type Mapping struct{}

// Map returns an error on non-Linux platforms.
func Map(device string, base int64) (*Mapping, error) {
	return nil, fmt.Errorf("%w: not supported on this platform (requires Linux)", ErrMapping)
}

// Read32 is not implemented on non-Linux platforms.
func (m *Mapping) Read32(off Offset) uint32 { return 0 }

// Write32 is not implemented on non-Linux platforms.
func (m *Mapping) Write32(off Offset, v uint32) {}

// Close is a no-op on non-Linux platforms.
func (m *Mapping) Close() error { return nil }
