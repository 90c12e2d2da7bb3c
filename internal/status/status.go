// Package status provides a thread-safe status tracker for the gpio-keyboard daemon.
// It is written by the poll loop's observer and read by HTTP handlers and
// MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gpio-keyboard/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Backend  string
	Sink     string
	PollMs   int64
	Broker   string
	HTTPAddr string
}

// KeyStatus is the live state of one button.
type KeyStatus struct {
	Binding     string
	Pin         int
	Key         logic.Key
	State       logic.State
	Counts      logic.Counts
	LastEventAt time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Keys          []KeyStatus
	Running       bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	snap  Snapshot
	index map[string]int
	now   func() time.Time
}

// NewTracker creates a Tracker with every binding released.
func NewTracker(startTime time.Time, cfg Config, bindings []logic.Binding) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		index: make(map[string]int),
		now:   time.Now,
	}
	for i, b := range bindings {
		t.snap.Keys = append(t.snap.Keys, KeyStatus{
			Binding: b.Name,
			Pin:     b.Pin,
			Key:     b.Key,
			State:   logic.StateReleased,
		})
		t.index[b.Name] = i
	}
	return t
}

// Record applies a key event. Events for unknown bindings are ignored.
func (t *Tracker) Record(e logic.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[e.Binding]
	if !ok {
		return
	}
	k := &t.snap.Keys[i]
	if e.Pressed() {
		k.State = logic.StatePressed
		k.Counts.Pressed++
	} else {
		k.State = logic.StateReleased
		k.Counts.Released++
	}
	k.LastEventAt = e.Timestamp
}

// SetRunning records whether the poll loop is active.
func (t *Tracker) SetRunning(running bool) {
	t.mu.Lock()
	t.snap.Running = running
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Keys = append([]KeyStatus(nil), t.snap.Keys...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
