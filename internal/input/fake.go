package input

import (
	"sync"

	"github.com/sweeney/gpio-keyboard/internal/logic"
)

// Call is one recorded Sink call. Flush calls have Flush set and no key.
type Call struct {
	Key     logic.Key
	Pressed bool
	Flush   bool
}

// Recorder is a test double that records sink calls in order.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	closes int

	// ReportError, if set, will be returned by Report.
	ReportError error

	// OnReport, if set, is called after each recorded Report.
	OnReport func(key logic.Key, pressed bool)
}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report records the key event.
func (r *Recorder) Report(key logic.Key, pressed bool) error {
	r.mu.Lock()
	if r.ReportError != nil {
		err := r.ReportError
		r.mu.Unlock()
		return err
	}
	r.calls = append(r.calls, Call{Key: key, Pressed: pressed})
	hook := r.OnReport
	r.mu.Unlock()

	if hook != nil {
		hook(key, pressed)
	}
	return nil
}

// Flush records the sync.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Flush: true})
	r.mu.Unlock()
	return nil
}

// Close records the call.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closes++
	r.mu.Unlock()
	return nil
}

// Calls returns a copy of all recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Keys returns only the Report calls, in order.
func (r *Recorder) Keys() []Call {
	var keys []Call
	for _, c := range r.Calls() {
		if !c.Flush {
			keys = append(keys, c)
		}
	}
	return keys
}

// Closes returns how many times Close was called.
func (r *Recorder) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}
