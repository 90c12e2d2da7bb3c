package gpio

import (
	"fmt"
	"time"

	"github.com/sweeney/gpio-keyboard/internal/logic"
	"github.com/sweeney/gpio-keyboard/internal/regs"
)

// MMIOReader samples levels straight from the mapped GPLEV0 register.
type MMIOReader struct {
	mapping *regs.Mapping
}

// OpenMMIO maps the GPIO block through device and configures pins as
// pulled-up inputs. The returned error wraps regs.ErrMapping if the block
// could not be mapped.
func OpenMMIO(device string, base int64, pins ...int) (*MMIOReader, error) {
	m, err := regs.Map(device, base)
	if err != nil {
		return nil, err
	}

	ConfigureInputs(m, time.Sleep, pins...)

	return &MMIOReader{mapping: m}, nil
}

// Level returns the level of pin. Register reads cannot fail once mapped.
func (r *MMIOReader) Level(pin int) (logic.Level, error) {
	return ReadLevel(r.mapping, pin), nil
}

// Close unmaps the register block. Safe to call more than once.
func (r *MMIOReader) Close() error {
	if err := r.mapping.Close(); err != nil {
		return fmt.Errorf("unmap gpio: %w", err)
	}
	return nil
}
