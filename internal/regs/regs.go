// Package regs provides typed 32-bit access to the BCM283x GPIO register block.
// No other package performs raw offset arithmetic over the mapped memory.
package regs

import (
	"errors"
	"fmt"
)

// Offset is a byte offset into the GPIO register block.
type Offset uintptr

// Register offsets (BCM2835/2837 peripheral datasheet, section 6.1).
const (
	GPFSEL0   Offset = 0x00
	GPFSEL1   Offset = 0x04
	GPFSEL2   Offset = 0x08
	GPFSEL3   Offset = 0x0C
	GPFSEL4   Offset = 0x10
	GPFSEL5   Offset = 0x14
	GPLEV0    Offset = 0x34
	GPPUD     Offset = 0x94
	GPPUDCLK0 Offset = 0x98
)

const (
	// DefaultBase is the physical address of the GPIO block on BCM2836/2837 (Pi 2/3).
	DefaultBase int64 = 0x3F200000

	// BlockLen is the size of the mapped window in bytes.
	BlockLen = 0xB4
)

// ErrMapping is wrapped by every error returned when the register window
// cannot be established.
var ErrMapping = errors.New("register mapping failed")

// Block reads and writes 32-bit registers. Every call is exactly one
// hardware access.
type Block interface {
	Read32(off Offset) uint32
	Write32(off Offset, v uint32)
}

// index converts an offset into a word index. A bad offset is a programming
// error, not a runtime condition.
func index(off Offset, length int) int {
	if off%4 != 0 {
		panic(fmt.Sprintf("regs: misaligned offset %#x", uintptr(off)))
	}
	if int(off) < 0 || int(off)+4 > length {
		panic(fmt.Sprintf("regs: offset %#x outside %#x-byte block", uintptr(off), length))
	}
	return int(off / 4)
}
