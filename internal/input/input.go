// Package input delivers key events to the operating system's input event stream.
package input

import (
	"fmt"
	"log"
	"strings"

	"github.com/sweeney/gpio-keyboard/internal/logic"
)

// Sink receives key events. Report queues one key event; Flush commits it so
// listeners observe it immediately.
type Sink interface {
	Report(key logic.Key, pressed bool) error
	Flush() error

	// Close unregisters the device.
	Close() error
}

// Device identity of the virtual keyboard.
const (
	DefaultName = "Programmer Keyboard"
	DefaultPhys = "gpio/input0"
	DefaultPath = "/dev/uinput"
)

// Config identifies the virtual keyboard.
type Config struct {
	Path string // uinput control device
	Name string
	Phys string
}

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Phys == "" {
		c.Phys = DefaultPhys
	}
	return c
}

// Linux evdev key codes (include/uapi/linux/input-event-codes.h).
var keyCodes = map[string]uint16{
	"esc": 1,
	"1":   2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"minus": 12, "equal": 13, "backspace": 14, "tab": 15,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22, "i": 23, "o": 24, "p": 25,
	"enter": 28,
	"a":     30, "s": 31, "d": 32, "f": 33, "g": 34, "h": 35, "j": 36, "k": 37, "l": 38,
	"z": 44, "x": 45, "c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"space": 57,
	"up":    103, "left": 105, "right": 106, "down": 108,
	"volumeup": 115, "volumedown": 114,
}

// LookupKey resolves a key name such as "1", "a" or "enter".
func LookupKey(name string) (logic.Key, error) {
	n := strings.TrimPrefix(strings.ToLower(name), "key_")
	code, ok := keyCodes[n]
	if !ok {
		return logic.Key{}, fmt.Errorf("unknown key %q", name)
	}
	return logic.Key{Name: n, Code: code}, nil
}

// LogSink logs events instead of injecting them. Useful without uinput access.
type LogSink struct{}

// Report logs the key event.
func (LogSink) Report(key logic.Key, pressed bool) error {
	action := "released"
	if pressed {
		action = "pressed"
	}
	log.Printf("input: key %s (%d) %s", key.Name, key.Code, action)
	return nil
}

// Flush is a no-op.
func (LogSink) Flush() error { return nil }

// Close is a no-op.
func (LogSink) Close() error { return nil }
