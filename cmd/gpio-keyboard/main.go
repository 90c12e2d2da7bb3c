// Command gpio-keyboard turns two push buttons on Raspberry Pi GPIO pins into
// key presses on a virtual keyboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/gpio-keyboard/internal/gpio"
	"github.com/sweeney/gpio-keyboard/internal/input"
	"github.com/sweeney/gpio-keyboard/internal/keyboard"
	"github.com/sweeney/gpio-keyboard/internal/logic"
	"github.com/sweeney/gpio-keyboard/internal/mqtt"
	"github.com/sweeney/gpio-keyboard/internal/regs"
	"github.com/sweeney/gpio-keyboard/internal/status"
	"github.com/sweeney/gpio-keyboard/internal/web"
)

// eventQueue is how many key events may wait for the MQTT publisher before
// new ones are dropped. The poll loop never blocks on the broker.
const eventQueue = 64

// Sink names accepted by --sink.
const (
	sinkUinput = "uinput"
	sinkLog    = "log"
)

type options struct {
	backend    string
	mem        string
	gpioBase   int64
	chip       string
	pinInc     int
	pinDec     int
	keyInc     string
	keyDec     string
	sink       string
	uinput     string
	name       string
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	printState bool
}

func main() {
	var o options
	flag.StringVar(&o.backend, "backend", gpio.BackendMMIO, "GPIO backend: mmap, cdev or rpio")
	flag.StringVar(&o.mem, "mem", regs.GPIOMem, "Memory device for the mmap backend (/dev/gpiomem or /dev/mem)")
	flag.Int64Var(&o.gpioBase, "gpio-base", regs.DefaultBase, "Physical GPIO base address, used with /dev/mem")
	flag.StringVar(&o.chip, "chip", "gpiochip0", "GPIO chip for the cdev backend")
	flag.IntVar(&o.pinInc, "pin-inc", gpio.DefaultPinInc, "BCM pin number for the increment button")
	flag.IntVar(&o.pinDec, "pin-dec", gpio.DefaultPinDec, "BCM pin number for the decrement button")
	flag.StringVar(&o.keyInc, "key-inc", "1", "Key emitted by the increment button")
	flag.StringVar(&o.keyDec, "key-dec", "0", "Key emitted by the decrement button")
	flag.StringVar(&o.sink, "sink", sinkUinput, "Key sink: uinput or log")
	flag.StringVar(&o.uinput, "uinput", input.DefaultPath, "uinput control device")
	flag.StringVar(&o.name, "name", input.DefaultName, "Name of the virtual keyboard")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", "", "HTTP status address (empty to disable)")
	flag.BoolVar(&o.printState, "print-state", false, "Print current button state and exit")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	bindings, err := buildBindings(o.pinInc, o.pinDec, o.keyInc, o.keyDec)
	if err != nil {
		return err
	}
	openSink, err := sinkOpener(o.sink, input.Config{Path: o.uinput, Name: o.name})
	if err != nil {
		return err
	}
	gpioCfg := gpio.Config{
		Backend: o.backend,
		Device:  o.mem,
		Base:    o.gpioBase,
		Chip:    o.chip,
		Pins:    []int{o.pinInc, o.pinDec},
	}

	// Print state mode
	if o.printState {
		reader, err := gpio.Open(gpioCfg)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer reader.Close()
		return printState(os.Stdout, reader, bindings)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		Backend:  o.backend,
		Sink:     o.sink,
		PollMs:   keyboard.PollInterval.Milliseconds(),
		Broker:   o.broker,
		HTTPAddr: o.httpAddr,
	}, bindings)

	// MQTT is optional; without a broker the events channel stays nil.
	var (
		publisher mqtt.Publisher
		mqttState mqtt.ConnectionStatus
		events    chan logic.Event
	)
	if o.broker != "" {
		p := mqtt.NewRealPublisher(o.broker, "gpio-keyboard")
		defer p.Close()
		publisher, mqttState = p, p
		events = make(chan logic.Event, eventQueue)
	}

	drv := keyboard.New(keyboard.Config{
		Bindings: bindings,
		OpenReader: func() (gpio.Reader, error) {
			return gpio.Open(gpioCfg)
		},
		OpenSink: openSink,
		Observer: newObserver(tracker, events),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := drv.Start(ctx); err != nil {
		return err
	}
	tracker.SetRunning(true)

	publishLifecycle(publisher, mqttState, tracker, "STARTUP", "")

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: backend=%s sink=%s inc=GPIO%d/%s dec=GPIO%d/%s broker=%q heartbeat=%v",
		o.backend, o.sink, o.pinInc, bindings[0].Key.Name, o.pinDec, bindings[1].Key.Name, o.broker, o.heartbeat)

	var heartbeat <-chan time.Time
	if o.heartbeat > 0 && publisher != nil {
		t := time.NewTicker(o.heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(drv, publisher, mqttState, tracker, events, heartbeat, sigCh)
}

// driver is the part of keyboard.Driver the main loop needs.
type driver interface {
	Stop() error
	Running() bool
}

// runLoop forwards key events to MQTT and emits heartbeats until a signal
// arrives, then stops the driver and publishes SHUTDOWN.
func runLoop(drv driver, publisher mqtt.Publisher, mqttState mqtt.ConnectionStatus, tracker *status.Tracker, events <-chan logic.Event, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			err := drv.Stop()
			if err != nil {
				log.Printf("stop: %v", err)
			}
			tracker.SetRunning(false)

			// The poll goroutine has exited, so anything it queued is final.
			for drained := false; !drained; {
				select {
				case e := <-events:
					publishEvent(publisher, e)
				default:
					drained = true
				}
			}

			publishLifecycle(publisher, mqttState, tracker, "SHUTDOWN", signalName(s))
			return err

		case e := <-events:
			publishEvent(publisher, e)

		case <-heartbeat:
			tracker.SetRunning(drv.Running())
			snap := tracker.Snapshot()
			for _, k := range snap.Keys {
				log.Printf("heartbeat: %s state=%s pressed=%d released=%d", k.Binding, k.State, k.Counts.Pressed, k.Counts.Released)
			}
			publishLifecycle(publisher, mqttState, tracker, "HEARTBEAT", "")
		}
	}
}

// newObserver returns the poll loop's observer. It updates the tracker and
// queues the event for MQTT without blocking.
func newObserver(tracker *status.Tracker, events chan<- logic.Event) keyboard.Observer {
	return func(e logic.Event) {
		log.Printf("event: %s %s (GPIO%d, key %s)", e.Binding, e.Action, e.Pin, e.Key.Name)
		tracker.Record(e)
		if events == nil {
			return
		}
		select {
		case events <- e:
		default:
			log.Printf("mqtt: event queue full, dropping %s %s", e.Binding, e.Action)
		}
	}
}

func publishEvent(publisher mqtt.Publisher, e logic.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(e); err != nil {
		log.Printf("publish error: %v", err)
	}
}

// publishLifecycle sends a system event carrying the full status snapshot.
// STARTUP and SHUTDOWN are retained.
func publishLifecycle(publisher mqtt.Publisher, mqttState mqtt.ConnectionStatus, tracker *status.Tracker, event, reason string) {
	if publisher == nil {
		return
	}
	if mqttState != nil {
		tracker.SetMQTTConnected(mqttState.IsConnected())
	}
	snap := tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := publisher.PublishSystem(se); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// buildBindings validates the pin and key flags.
func buildBindings(pinInc, pinDec int, keyInc, keyDec string) ([]logic.Binding, error) {
	if pinInc == pinDec {
		return nil, fmt.Errorf("increment and decrement share GPIO%d", pinInc)
	}
	inc, err := input.LookupKey(keyInc)
	if err != nil {
		return nil, fmt.Errorf("--key-inc: %w", err)
	}
	dec, err := input.LookupKey(keyDec)
	if err != nil {
		return nil, fmt.Errorf("--key-dec: %w", err)
	}
	for _, pin := range []int{pinInc, pinDec} {
		if err := gpio.ValidatePin(pin); err != nil {
			return nil, err
		}
	}
	return []logic.Binding{
		{Name: "increment", Pin: pinInc, Key: inc},
		{Name: "decrement", Pin: pinDec, Key: dec},
	}, nil
}

// sinkOpener returns the keyboard.Config.OpenSink for the named sink.
func sinkOpener(name string, cfg input.Config) (func([]logic.Key) (input.Sink, error), error) {
	switch name {
	case sinkUinput:
		return func(keys []logic.Key) (input.Sink, error) {
			u, err := input.NewUinput(cfg, keys)
			if err != nil {
				return nil, err
			}
			return u, nil
		}, nil
	case sinkLog:
		return func([]logic.Key) (input.Sink, error) {
			return input.LogSink{}, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}

// printState reads every binding once and prints its state.
func printState(w io.Writer, reader gpio.Reader, bindings []logic.Binding) error {
	for _, b := range bindings {
		level, err := reader.Level(b.Pin)
		if err != nil {
			return fmt.Errorf("read gpio %d: %w", b.Pin, err)
		}
		state := logic.StateReleased
		if level == logic.Low {
			state = logic.StatePressed
		}
		fmt.Fprintf(w, "%s (GPIO%d, key %s): %s\n", b.Name, b.Pin, b.Key.Name, state)
	}
	return nil
}
