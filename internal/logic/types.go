// Package logic contains the pure edge-detection logic that turns sampled pin
// levels into key events.
// This package has NO external dependencies (no GPIO, uinput, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Level is a sampled logic level.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == Low {
		return "LOW"
	}
	return "HIGH"
}

// State is the settled state of a button. With pull-ups enabled a pressed
// button pulls the line to ground.
type State string

const (
	StateReleased State = "RELEASED"
	StatePressed  State = "PRESSED"
)

// Action is what a key event reports.
type Action string

const (
	ActionPressed  Action = "PRESSED"
	ActionReleased Action = "RELEASED"
)

// Key is a logical key identifier. Code is the Linux evdev key code.
type Key struct {
	Name string
	Code uint16
}

// Binding ties a GPIO pin to the key it reports.
type Binding struct {
	Name string // e.g. "increment"
	Pin  int    // BCM pin number
	Key  Key
}

// Event is a single key press or release.
type Event struct {
	Timestamp time.Time
	Binding   string
	Pin       int
	Key       Key
	Action    Action
}

// Pressed reports whether the event is a press.
func (e Event) Pressed() bool {
	return e.Action == ActionPressed
}

// Input is one poll iteration's worth of samples, in binding order.
type Input struct {
	Levels []Level
	Time   time.Time
}

// Counts tracks events emitted for one binding since startup.
type Counts struct {
	Pressed  int
	Released int
}
