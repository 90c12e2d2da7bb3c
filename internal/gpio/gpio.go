// Package gpio configures button pins as pulled-up inputs and samples their levels.
// The mmio implementation programs the BCM283x registers directly; the cdev
// and rpio implementations go through the GPIO character device and go-rpio.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"time"

	"github.com/sweeney/gpio-keyboard/internal/logic"
	"github.com/sweeney/gpio-keyboard/internal/regs"
)

// Reader samples pin levels.
type Reader interface {
	// Level returns the raw logic level of a BCM pin.
	// With pull-ups enabled, LOW means the button is pressed.
	Level(pin int) (logic.Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinInc = 23 // increment button
	DefaultPinDec = 24 // decrement button
)

const (
	// MaxPin is the highest pin in the first register bank.
	MaxPin = 31

	// PullSettle is the minimum hold time for each phase of the pull-up
	// latch sequence (BCM2835 datasheet, GPPUDCLK).
	PullSettle = 150 * time.Nanosecond

	pullOff uint32 = 0
	pullUp  uint32 = 2

	fselMask uint32 = 0x7
)

// ValidatePin reports an error for pins outside the first register bank.
func ValidatePin(pin int) error {
	if pin < 0 || pin > MaxPin {
		return fmt.Errorf("pin %d out of range [0, %d]", pin, MaxPin)
	}
	return nil
}

// FSelOffset returns the function-select register covering pin.
func FSelOffset(pin int) regs.Offset {
	return regs.GPFSEL0 + regs.Offset(pin/10)*4
}

// FSelShift returns the bit position of pin's 3-bit function field.
func FSelShift(pin int) uint {
	return uint(pin%10) * 3
}

// ConfigureInputs selects the input function for every pin and latches the
// internal pull-ups. sleep must block for at least the given duration.
func ConfigureInputs(b regs.Block, sleep func(time.Duration), pins ...int) {
	// One read-modify-write per function-select register, in pin order.
	var order []regs.Offset
	masks := make(map[regs.Offset]uint32)
	for _, pin := range pins {
		off := FSelOffset(pin)
		if _, ok := masks[off]; !ok {
			order = append(order, off)
		}
		masks[off] |= fselMask << FSelShift(pin)
	}
	for _, off := range order {
		b.Write32(off, b.Read32(off)&^masks[off])
	}

	var clk uint32
	for _, pin := range pins {
		clk |= 1 << uint(pin)
	}

	b.Write32(regs.GPPUD, pullUp)
	sleep(PullSettle)
	b.Write32(regs.GPPUDCLK0, clk)
	sleep(PullSettle)
	b.Write32(regs.GPPUD, pullOff)
	b.Write32(regs.GPPUDCLK0, 0)
}

// ReadLevel extracts pin's level from the GPLEV0 register.
func ReadLevel(b regs.Block, pin int) logic.Level {
	if b.Read32(regs.GPLEV0)&(1<<uint(pin)) != 0 {
		return logic.High
	}
	return logic.Low
}

// Open creates a reader for the named backend.
func Open(cfg Config) (Reader, error) {
	for _, pin := range cfg.Pins {
		if err := ValidatePin(pin); err != nil {
			return nil, err
		}
	}

	var (
		r   Reader
		err error
	)
	switch cfg.Backend {
	case BackendMMIO, "":
		r, err = OpenMMIO(cfg.Device, cfg.Base, cfg.Pins...)
	case BackendCdev:
		r, err = OpenCdev(cfg.Chip, cfg.Pins...)
	case BackendRPIO:
		r, err = OpenRPIO(cfg.Pins...)
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Backend names accepted by Open.
const (
	BackendMMIO = "mmap"
	BackendCdev = "cdev"
	BackendRPIO = "rpio"
)

// Config selects and parameterises a Reader backend.
type Config struct {
	Backend string
	Device  string // mmap: /dev/gpiomem or /dev/mem
	Base    int64  // mmap: physical base of the GPIO block
	Chip    string // cdev: e.g. gpiochip0
	Pins    []int
}
