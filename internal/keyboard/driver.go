package keyboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/gpio-keyboard/internal/gpio"
	"github.com/sweeney/gpio-keyboard/internal/input"
	"github.com/sweeney/gpio-keyboard/internal/logic"
	"github.com/sweeney/gpio-keyboard/internal/regs"
)

// Startup failures. Each is fatal and leaves nothing allocated.
var (
	ErrDeviceRegistration = errors.New("input device registration failed")
	ErrTaskStart          = errors.New("poll task start failed")
)

// Config wires a Driver to its collaborators.
type Config struct {
	Bindings []logic.Binding

	// Interval between poll iterations. Zero means PollInterval.
	Interval time.Duration

	// OpenReader maps and configures the GPIO pins.
	OpenReader func() (gpio.Reader, error)

	// OpenSink registers the input device for keys.
	OpenSink func(keys []logic.Key) (input.Sink, error)

	// Observer, if set, sees every event after the sink has been flushed.
	Observer Observer

	// Ticker, if set, replaces time.NewTicker. The returned func stops it.
	Ticker func(d time.Duration) (<-chan time.Time, func())
}

// Driver starts and stops the poll loop and owns the reader and sink for as
// long as the loop may use them.
type Driver struct {
	cfg Config

	mu      sync.Mutex
	started bool
	reader  gpio.Reader
	sink    input.Sink
	poller  *Poller
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// New creates a Driver. Nothing is acquired until Start.
func New(cfg Config) *Driver {
	if cfg.Interval <= 0 {
		cfg.Interval = PollInterval
	}
	if cfg.Ticker == nil {
		cfg.Ticker = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
	return &Driver{cfg: cfg}
}

// Start maps the GPIO pins, registers the input device and launches the poll
// loop. On failure everything acquired so far is released before returning.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("%w: already running", ErrTaskStart)
	}

	reader, err := d.cfg.OpenReader()
	if err != nil {
		if !errors.Is(err, regs.ErrMapping) {
			err = fmt.Errorf("%w: %w", regs.ErrMapping, err)
		}
		return fmt.Errorf("open gpio: %w", err)
	}

	keys := make([]logic.Key, len(d.cfg.Bindings))
	for i, b := range d.cfg.Bindings {
		keys[i] = b.Key
	}
	sink, err := d.cfg.OpenSink(keys)
	if err != nil {
		closeLogged("gpio", reader)
		return fmt.Errorf("%w: %w", ErrDeviceRegistration, err)
	}

	if err := ctx.Err(); err != nil {
		closeLogged("input", sink)
		closeLogged("gpio", reader)
		return fmt.Errorf("%w: %w", ErrTaskStart, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	p := NewPoller(reader, sink, d.cfg.Bindings, d.cfg.Observer)
	tick, stopTick := d.cfg.Ticker(d.cfg.Interval)

	p.running.Store(true)
	g := new(errgroup.Group)
	ready := make(chan struct{})
	g.Go(func() error {
		defer stopTick()
		close(ready)
		return p.Run(runCtx, tick)
	})
	<-ready

	d.reader, d.sink, d.poller = reader, sink, p
	d.group, d.cancel = g, cancel
	d.started = true

	log.Printf("keyboard: polling %d buttons every %v", len(d.cfg.Bindings), d.cfg.Interval)
	return nil
}

// Stop signals the poll loop, waits for it to exit, then releases the sink
// and the GPIO reader, each exactly once. Calling Stop on a driver that is not
// running is a no-op.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}

	d.poller.Stop()
	err := d.group.Wait()
	d.cancel()

	var errs []error
	if err != nil {
		errs = append(errs, fmt.Errorf("poll loop: %w", err))
	}
	if err := d.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close input: %w", err))
	}
	if err := d.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close gpio: %w", err))
	}

	d.reader, d.sink, d.poller = nil, nil, nil
	d.group, d.cancel = nil, nil
	d.started = false

	log.Printf("keyboard: stopped")
	return errors.Join(errs...)
}

// Running reports whether the poll loop is active.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started && d.poller.Running()
}

type closer interface {
	Close() error
}

func closeLogged(what string, c closer) {
	if err := c.Close(); err != nil {
		log.Printf("keyboard: close %s: %v", what, err)
	}
}
