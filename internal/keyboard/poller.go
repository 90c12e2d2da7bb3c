// Package keyboard runs the button poll loop and owns the lifecycle of the GPIO
// reader and input sink it drives.
package keyboard

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/gpio-keyboard/internal/gpio"
	"github.com/sweeney/gpio-keyboard/internal/input"
	"github.com/sweeney/gpio-keyboard/internal/logic"
)

// PollInterval is the fixed delay between poll iterations.
const PollInterval = 10 * time.Millisecond

// Observer is notified of every event after it has been flushed to the sink.
// It runs on the poll goroutine and must not block.
type Observer func(logic.Event)

// Poller samples every binding once per iteration and forwards transitions
// to the sink.
type Poller struct {
	reader   gpio.Reader
	sink     input.Sink
	detector *logic.Detector
	bindings []logic.Binding
	observer Observer
	now      func() time.Time

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a poller. observer may be nil.
func NewPoller(reader gpio.Reader, sink input.Sink, bindings []logic.Binding, observer Observer) *Poller {
	return &Poller{
		reader:   reader,
		sink:     sink,
		detector: logic.NewDetector(bindings),
		bindings: append([]logic.Binding(nil), bindings...),
		observer: observer,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// Poll runs one iteration: bindings are sampled in order, and each event is
// reported and flushed before the next binding is read.
func (p *Poller) Poll(now time.Time) []logic.Event {
	var events []logic.Event
	for i, b := range p.bindings {
		level, err := p.reader.Level(b.Pin)
		if err != nil {
			log.Printf("keyboard: read pin %d: %v", b.Pin, err)
			continue
		}

		e, ok := p.detector.Sample(i, level, now)
		if !ok {
			continue
		}

		if err := p.sink.Report(e.Key, e.Pressed()); err != nil {
			log.Printf("keyboard: report key %s: %v", e.Key.Name, err)
		} else if err := p.sink.Flush(); err != nil {
			log.Printf("keyboard: flush key %s: %v", e.Key.Name, err)
		}

		if p.observer != nil {
			p.observer(e)
		}
		events = append(events, e)
	}
	return events
}

// Run polls until Stop is called or ctx is done. One iteration runs
// immediately, then one per value received from tick.
func (p *Poller) Run(ctx context.Context, tick <-chan time.Time) error {
	select {
	case <-p.stop:
		return nil
	default:
	}
	p.running.Store(true)
	defer p.running.Store(false)

	for p.running.Load() {
		p.Poll(p.now())

		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case <-tick:
		}
	}
	return nil
}

// Stop clears the running flag and wakes the loop. It does not wait; the
// caller joins the goroutine running Run.
func (p *Poller) Stop() {
	p.running.Store(false)
	p.stopOnce.Do(func() { close(p.stop) })
}

// Running reports whether Run is looping.
func (p *Poller) Running() bool {
	return p.running.Load()
}

// CurrentState returns the settled state of each binding.
// Only safe to call when Run is not executing.
func (p *Poller) CurrentState() []logic.State {
	return p.detector.CurrentState()
}
