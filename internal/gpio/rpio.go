//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/sweeney/gpio-keyboard/internal/logic"
)

// RPIOReader reads GPIO through go-rpio's /dev/gpiomem mapping.
type RPIOReader struct {
	pins map[int]rpio.Pin
	once sync.Once
	err  error
}

// OpenRPIO maps GPIO memory and configures pins as inputs with pull-ups.
func OpenRPIO(pins ...int) (*RPIOReader, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open rpio: %w", err)
	}

	r := &RPIOReader{pins: make(map[int]rpio.Pin)}
	for _, n := range pins {
		p := rpio.Pin(n)
		p.Input()
		p.PullUp()
		r.pins[n] = p
	}
	return r, nil
}

// Level returns the raw level of pin.
func (r *RPIOReader) Level(pin int) (logic.Level, error) {
	p, ok := r.pins[pin]
	if !ok {
		return logic.High, fmt.Errorf("pin %d not configured", pin)
	}
	if p.Read() == rpio.Low {
		return logic.Low, nil
	}
	return logic.High, nil
}

// Close unmaps GPIO memory. Safe to call more than once.
func (r *RPIOReader) Close() error {
	r.once.Do(func() {
		if err := rpio.Close(); err != nil {
			r.err = fmt.Errorf("close rpio: %w", err)
		}
	})
	return r.err
}
