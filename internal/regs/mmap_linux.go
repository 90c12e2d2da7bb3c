//go:build linux

package regs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// GPIOMem is the kernel's GPIO-only view of physical memory. It is mapped at
// offset 0 and does not require root.
const GPIOMem = "/dev/gpiomem"

// Mapping is a live mmap of the GPIO register block.
type Mapping struct {
	mem   []byte
	words []uint32
	once  sync.Once
	err   error
}

// Map maps BlockLen bytes of the GPIO block through device. /dev/gpiomem is
// mapped at offset 0; any other device (e.g. /dev/mem) at the physical base.
func Map(device string, base int64) (*Mapping, error) {
	f, err := os.OpenFile(device, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrMapping, device, err)
	}
	// The mapping stays valid after the descriptor is closed.
	defer f.Close()

	offset := base
	if filepath.Base(device) == filepath.Base(GPIOMem) {
		offset = 0
	}

	mem, err := unix.Mmap(int(f.Fd()), offset, BlockLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s at %#x: %v", ErrMapping, device, offset, err)
	}

	return &Mapping{
		mem:   mem,
		words: unsafe.Slice((*uint32)(unsafe.Pointer(&mem[0])), len(mem)/4),
	}, nil
}

// Read32 performs a single 32-bit load from the register at off.
func (m *Mapping) Read32(off Offset) uint32 {
	return atomic.LoadUint32(&m.words[index(off, len(m.mem))])
}

// Write32 performs a single 32-bit store to the register at off.
func (m *Mapping) Write32(off Offset, v uint32) {
	atomic.StoreUint32(&m.words[index(off, len(m.mem))], v)
}

// Close unmaps the block. It is safe to call more than once and on a nil
// Mapping.
func (m *Mapping) Close() error {
	if m == nil {
		return nil
	}
	m.once.Do(func() {
		mem := m.mem
		m.mem, m.words = nil, nil
		if mem != nil {
			m.err = unix.Munmap(mem)
		}
	})
	return m.err
}
