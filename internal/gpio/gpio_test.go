package gpio

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/gpio-keyboard/internal/logic"
	"github.com/sweeney/gpio-keyboard/internal/regs"
)

func TestFSelOffsetAndShift(t *testing.T) {
	tests := []struct {
		pin   int
		off   regs.Offset
		shift uint
	}{
		{0, regs.GPFSEL0, 0},
		{9, regs.GPFSEL0, 27},
		{10, regs.GPFSEL1, 0},
		{23, regs.GPFSEL2, 9},
		{24, regs.GPFSEL2, 12},
		{31, regs.GPFSEL3, 3},
	}
	for _, tt := range tests {
		if got := FSelOffset(tt.pin); got != tt.off {
			t.Errorf("FSelOffset(%d): got %#x, want %#x", tt.pin, uintptr(got), uintptr(tt.off))
		}
		if got := FSelShift(tt.pin); got != tt.shift {
			t.Errorf("FSelShift(%d): got %d, want %d", tt.pin, got, tt.shift)
		}
	}
}

func TestValidatePin(t *testing.T) {
	for _, pin := range []int{0, 23, 24, 31} {
		if err := ValidatePin(pin); err != nil {
			t.Errorf("pin %d: unexpected error: %v", pin, err)
		}
	}
	for _, pin := range []int{-1, 32, 53} {
		if err := ValidatePin(pin); err == nil {
			t.Errorf("pin %d: expected error", pin)
		}
	}
}

func TestConfigureInputsSequence(t *testing.T) {
	m := regs.NewMemory()
	m.Set(regs.GPFSEL2, 0xFFFFFFFF)

	var sleeps []time.Duration
	var writesAtSleep []int
	sleep := func(d time.Duration) {
		sleeps = append(sleeps, d)
		writesAtSleep = append(writesAtSleep, len(m.Writes))
	}

	ConfigureInputs(m, sleep, DefaultPinInc, DefaultPinDec)

	want := []regs.Write{
		{Off: regs.GPFSEL2, Value: 0xFFFF81FF},
		{Off: regs.GPPUD, Value: 2},
		{Off: regs.GPPUDCLK0, Value: 1<<23 | 1<<24},
		{Off: regs.GPPUD, Value: 0},
		{Off: regs.GPPUDCLK0, Value: 0},
	}
	if len(m.Writes) != len(want) {
		t.Fatalf("expected %d writes, got %d: %+v", len(want), len(m.Writes), m.Writes)
	}
	for i := range want {
		if m.Writes[i] != want[i] {
			t.Errorf("write %d: got {%#x %#x}, want {%#x %#x}",
				i, uintptr(m.Writes[i].Off), m.Writes[i].Value, uintptr(want[i].Off), want[i].Value)
		}
	}

	// Hold after the mode write and after the clock write.
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 settle delays, got %d", len(sleeps))
	}
	for i, d := range sleeps {
		if d < PullSettle {
			t.Errorf("delay %d: %v shorter than %v", i, d, PullSettle)
		}
	}
	if writesAtSleep[0] != 2 || writesAtSleep[1] != 3 {
		t.Errorf("delays at wrong points in sequence: after writes %v, want [2 3]", writesAtSleep)
	}
}

func TestConfigureInputsPreservesNeighbours(t *testing.T) {
	m := regs.NewMemory()
	// Pins 20, 21, 22, 25 configured as outputs (001), pins 23/24 as ALT0 (100).
	var fsel uint32
	for _, pin := range []int{20, 21, 22, 25} {
		fsel |= 1 << FSelShift(pin)
	}
	fsel |= 4 << FSelShift(23)
	fsel |= 4 << FSelShift(24)
	m.Set(regs.GPFSEL2, fsel)

	ConfigureInputs(m, func(time.Duration) {}, 23, 24)

	got := m.Read32(regs.GPFSEL2)
	for _, pin := range []int{20, 21, 22, 25} {
		if (got>>FSelShift(pin))&7 != 1 {
			t.Errorf("pin %d: function changed to %03b", pin, (got>>FSelShift(pin))&7)
		}
	}
	for _, pin := range []int{23, 24} {
		if (got>>FSelShift(pin))&7 != 0 {
			t.Errorf("pin %d: expected input (000), got %03b", pin, (got>>FSelShift(pin))&7)
		}
	}
}

func TestConfigureInputsAcrossRegisters(t *testing.T) {
	m := regs.NewMemory()
	m.Set(regs.GPFSEL0, 0xFFFFFFFF)
	m.Set(regs.GPFSEL1, 0xFFFFFFFF)

	ConfigureInputs(m, func(time.Duration) {}, 9, 10)

	if got := m.Read32(regs.GPFSEL0); got != 0xFFFFFFFF&^(7<<27) {
		t.Errorf("GPFSEL0: got %#x", got)
	}
	if got := m.Read32(regs.GPFSEL1); got != 0xFFFFFFFF&^7 {
		t.Errorf("GPFSEL1: got %#x", got)
	}
	if m.Writes[0].Off != regs.GPFSEL0 || m.Writes[1].Off != regs.GPFSEL1 {
		t.Errorf("function-select writes out of order: %+v", m.Writes[:2])
	}
	if m.Writes[3].Value != 1<<9|1<<10 {
		t.Errorf("clock mask: got %#x", m.Writes[3].Value)
	}
}

func TestReadLevel(t *testing.T) {
	m := regs.NewMemory()
	m.Set(regs.GPLEV0, 1<<24)

	if got := ReadLevel(m, 23); got != logic.Low {
		t.Errorf("pin 23: expected LOW, got %s", got)
	}
	if got := ReadLevel(m, 24); got != logic.High {
		t.Errorf("pin 24: expected HIGH, got %s", got)
	}
	if len(m.Writes) != 0 {
		t.Errorf("reading levels should not write, got %d writes", len(m.Writes))
	}
}

func TestOpenInvalidPin(t *testing.T) {
	if _, err := Open(Config{Backend: BackendMMIO, Pins: []int{23, 40}}); err == nil {
		t.Error("expected error for pin 40")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Config{Backend: "sysfs", Pins: []int{23}}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestOpenMMIOMappingError(t *testing.T) {
	r, err := Open(Config{
		Backend: BackendMMIO,
		Device:  filepath.Join(t.TempDir(), "gpiomem"),
		Base:    regs.DefaultBase,
		Pins:    []int{23, 24},
	})
	if err == nil {
		r.Close()
		t.Fatal("expected mapping error")
	}
	if !errors.Is(err, regs.ErrMapping) {
		t.Errorf("expected regs.ErrMapping, got %v", err)
	}
	if r != nil {
		t.Error("expected nil reader on error")
	}
}
