package internal

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/gpio-keyboard/internal/gpio"
	"github.com/sweeney/gpio-keyboard/internal/input"
	"github.com/sweeney/gpio-keyboard/internal/keyboard"
	"github.com/sweeney/gpio-keyboard/internal/logic"
	"github.com/sweeney/gpio-keyboard/internal/mqtt"
	"github.com/sweeney/gpio-keyboard/internal/regs"
	"github.com/sweeney/gpio-keyboard/internal/status"
)

// blockReader reads levels from an in-memory register file the way
// MMIOReader reads them from the mapped block.
type blockReader struct {
	b regs.Block
}

func (r blockReader) Level(pin int) (logic.Level, error) { return gpio.ReadLevel(r.b, pin), nil }
func (r blockReader) Close() error                       { return nil }

const (
	pinInc = gpio.DefaultPinInc
	pinDec = gpio.DefaultPinDec
)

func bindings(t *testing.T) []logic.Binding {
	t.Helper()
	one, err := input.LookupKey("1")
	if err != nil {
		t.Fatal(err)
	}
	zero, err := input.LookupKey("0")
	if err != nil {
		t.Fatal(err)
	}
	return []logic.Binding{
		{Name: "increment", Pin: pinInc, Key: one},
		{Name: "decrement", Pin: pinDec, Key: zero},
	}
}

// levels encodes GPLEV0 with the given buttons held. Pull-ups keep every
// other pin high.
func levels(held ...int) uint32 {
	v := ^uint32(0)
	for _, pin := range held {
		v &^= 1 << uint(pin)
	}
	return v
}

// TestIntegrationFullFlow drives register levels through the poller into the
// key sink, the status tracker and MQTT.
func TestIntegrationFullFlow(t *testing.T) {
	mem := regs.NewMemory()
	gpio.ConfigureInputs(mem, func(time.Duration) {}, pinInc, pinDec)

	b := bindings(t)
	sink := input.NewRecorder()
	publisher := mqtt.NewFakePublisher()
	tracker := status.NewTracker(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), status.Config{}, b)

	p := keyboard.NewPoller(blockReader{mem}, sink, b, func(e logic.Event) {
		tracker.Record(e)
		if err := publisher.Publish(e); err != nil {
			t.Errorf("publish: %v", err)
		}
	})

	// idle -> inc held -> both held -> inc released -> all released
	frames := []uint32{
		levels(),
		levels(pinInc),
		levels(pinInc),
		levels(pinInc, pinDec),
		levels(pinDec),
		levels(),
		levels(),
	}

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, f := range frames {
		mem.Set(regs.GPLEV0, f)
		p.Poll(start.Add(time.Duration(i) * keyboard.PollInterval))
	}

	want := []struct {
		binding string
		action  logic.Action
		code    uint16
	}{
		{"increment", logic.ActionPressed, 2},
		{"decrement", logic.ActionPressed, 11},
		{"increment", logic.ActionReleased, 2},
		{"decrement", logic.ActionReleased, 11},
	}

	events := publisher.PublishedEvents()
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, w := range want {
		e := events[i]
		if e.Binding != w.binding || e.Action != w.action || e.Key.Code != w.code {
			t.Errorf("event %d: got %s %s (%d), want %s %s (%d)", i, e.Binding, e.Action, e.Key.Code, w.binding, w.action, w.code)
		}
	}

	// Each report is followed by exactly one flush.
	calls := sink.Calls()
	if len(calls) != 2*len(want) {
		t.Fatalf("expected %d sink calls, got %d", 2*len(want), len(calls))
	}
	for i := 0; i < len(calls); i += 2 {
		if calls[i].Flush || !calls[i+1].Flush {
			t.Errorf("calls %d/%d not report+flush: %+v %+v", i, i+1, calls[i], calls[i+1])
		}
	}

	// Verify MQTT payload
	var payload mqtt.Payload
	if err := json.Unmarshal(publisher.Payloads[1], &payload); err != nil {
		t.Fatalf("invalid payload JSON: %v", err)
	}
	if payload.Key.Binding != "decrement" || payload.Key.Action != "PRESSED" || payload.Key.Pin != pinDec {
		t.Errorf("unexpected payload: %+v", payload.Key)
	}
	if payload.Key.Timestamp != "2026-01-01T12:00:00.03Z" {
		t.Errorf("unexpected timestamp: %s", payload.Key.Timestamp)
	}

	snap := tracker.Snapshot()
	for _, k := range snap.Keys {
		if k.State != logic.StateReleased || k.Counts.Pressed != 1 || k.Counts.Released != 1 {
			t.Errorf("%s: %+v", k.Binding, k)
		}
	}
}

// TestIntegrationRegisterProgramming checks the pins end up as pulled-up
// inputs without disturbing their neighbours.
func TestIntegrationRegisterProgramming(t *testing.T) {
	mem := regs.NewMemory()
	// GPIO20..29 share GPFSEL2; mark GPIO22 and GPIO25 as outputs.
	mem.Set(regs.GPFSEL2, 1<<6|1<<15|7<<9|7<<12)

	gpio.ConfigureInputs(mem, func(time.Duration) {}, pinInc, pinDec)

	if got, want := mem.Read32(regs.GPFSEL2), uint32(1<<6|1<<15); got != want {
		t.Errorf("GPFSEL2: got %#x, want %#x", got, want)
	}
	if mem.Read32(regs.GPPUD) != 0 || mem.Read32(regs.GPPUDCLK0) != 0 {
		t.Error("pull-up control registers not cleared")
	}
}

// TestIntegrationPublishFailureKeepsTyping checks that MQTT failures do not
// affect key injection.
func TestIntegrationPublishFailureKeepsTyping(t *testing.T) {
	mem := regs.NewMemory()
	gpio.ConfigureInputs(mem, func(time.Duration) {}, pinInc, pinDec)

	b := bindings(t)
	sink := input.NewRecorder()
	publisher := mqtt.NewFakePublisher()
	publisher.PublishError = errors.New("broker unreachable")

	var failures int
	p := keyboard.NewPoller(blockReader{mem}, sink, b, func(e logic.Event) {
		if err := publisher.Publish(e); err != nil {
			failures++
		}
	})

	now := time.Now()
	mem.Set(regs.GPLEV0, levels())
	p.Poll(now)
	mem.Set(regs.GPLEV0, levels(pinDec))
	p.Poll(now.Add(keyboard.PollInterval))
	mem.Set(regs.GPLEV0, levels())
	p.Poll(now.Add(2 * keyboard.PollInterval))

	if failures != 2 {
		t.Errorf("expected 2 publish failures, got %d", failures)
	}
	keys := sink.Keys()
	if len(keys) != 2 || keys[0].Key.Code != 11 || !keys[0].Pressed || keys[1].Pressed {
		t.Errorf("sink saw %+v", keys)
	}
}
