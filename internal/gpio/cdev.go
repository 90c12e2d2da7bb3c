//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/gpio-keyboard/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// CdevReader reads GPIO through the Linux GPIO character device.
type CdevReader struct {
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
	order []int
}

// OpenCdev requests pins on chip as inputs with the pull-up bias enabled.
func OpenCdev(chip string, pins ...int) (*CdevReader, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &CdevReader{chip: c, lines: make(map[int]*gpiocdev.Line)}
	for _, pin := range pins {
		l, err := c.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request pin %d: %w", pin, err)
		}
		r.lines[pin] = l
		r.order = append(r.order, pin)
	}
	return r, nil
}

// Level returns the raw level of pin.
func (r *CdevReader) Level(pin int) (logic.Level, error) {
	l, ok := r.lines[pin]
	if !ok {
		return logic.High, fmt.Errorf("pin %d not requested", pin)
	}
	v, err := l.Value()
	if err != nil {
		return logic.High, fmt.Errorf("read pin %d: %w", pin, err)
	}
	if v == 0 {
		return logic.Low, nil
	}
	return logic.High, nil
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults for
// these pins) before closing so the lines are left in a known state.
func (r *CdevReader) Close() error {
	var errs []error
	for _, pin := range r.order {
		l := r.lines[pin]
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
		delete(r.lines, pin)
	}
	r.order = nil

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	return errors.Join(errs...)
}
