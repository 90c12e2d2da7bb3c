package logic

import "time"

// Detector tracks the settled level of each bound pin and reports transitions.
// A transition is reported once, on the first sample that differs from the
// settled level; the new level becomes the baseline.
//
// Not safe for concurrent use. Only the poll loop owns a Detector.
type Detector struct {
	bindings []Binding
	baseline []Level
	counts   []Counts
}

// NewDetector creates a detector for the given bindings. Every button is
// assumed released (HIGH) at startup.
func NewDetector(bindings []Binding) *Detector {
	d := &Detector{
		bindings: append([]Binding(nil), bindings...),
		baseline: make([]Level, len(bindings)),
		counts:   make([]Counts, len(bindings)),
	}
	for i := range d.baseline {
		d.baseline[i] = High
	}
	return d
}

// Bindings returns the detector's bindings in sampling order.
func (d *Detector) Bindings() []Binding {
	return append([]Binding(nil), d.bindings...)
}

// Sample feeds one level for binding i. It returns an event only if the level
// differs from the settled baseline.
func (d *Detector) Sample(i int, level Level, now time.Time) (Event, bool) {
	if level == d.baseline[i] {
		return Event{}, false
	}
	d.baseline[i] = level

	b := d.bindings[i]
	e := Event{
		Timestamp: now,
		Binding:   b.Name,
		Pin:       b.Pin,
		Key:       b.Key,
		Action:    ActionReleased,
	}
	if level == Low {
		e.Action = ActionPressed
		d.counts[i].Pressed++
	} else {
		d.counts[i].Released++
	}
	return e, true
}

// Process samples every binding in order and returns the resulting events.
// Events for earlier bindings always precede events for later ones.
func (d *Detector) Process(input Input) []Event {
	var events []Event
	for i, level := range input.Levels {
		if i >= len(d.bindings) {
			break
		}
		if e, ok := d.Sample(i, level, input.Time); ok {
			events = append(events, e)
		}
	}
	return events
}

// CurrentState returns the settled state of each binding.
func (d *Detector) CurrentState() []State {
	states := make([]State, len(d.baseline))
	for i, l := range d.baseline {
		states[i] = levelToState(l)
	}
	return states
}

// EventCounts returns a copy of the per-binding event counters.
func (d *Detector) EventCounts() []Counts {
	return append([]Counts(nil), d.counts...)
}

func levelToState(l Level) State {
	if l == Low {
		return StatePressed
	}
	return StateReleased
}
