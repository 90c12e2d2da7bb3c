package gpio

import (
	"fmt"
	"sync"

	"github.com/sweeney/gpio-keyboard/internal/logic"
)

// FakeReader is a test double that returns scripted levels per pin.
// Safe for use from the poll goroutine while a test inspects it.
type FakeReader struct {
	mu sync.Mutex

	// samples contains scripted levels per pin. Each call to Level() for a
	// pin consumes the next level.
	samples map[int][]logic.Level

	// index tracks current position per pin
	index map[int]int

	// reads counts Level calls per pin
	reads map[int]int

	// closes counts Close calls
	closes int

	// ReadError, if set, will be returned by Level()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given per-pin levels.
func NewFakeReader(samples map[int][]logic.Level) *FakeReader {
	return &FakeReader{
		samples: samples,
		index:   make(map[int]int),
		reads:   make(map[int]int),
	}
}

// Level returns the next scripted level for pin.
// If samples are exhausted, returns the last level repeatedly.
func (f *FakeReader) Level(pin int) (logic.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads[pin]++
	if f.ReadError != nil {
		return logic.High, f.ReadError
	}

	levels := f.samples[pin]
	if len(levels) == 0 {
		return logic.High, fmt.Errorf("no samples configured for pin %d", pin)
	}

	l := levels[f.index[pin]]
	if f.index[pin] < len(levels)-1 {
		f.index[pin]++
	}
	return l, nil
}

// SetReadError changes the error returned by Level.
func (f *FakeReader) SetReadError(err error) {
	f.mu.Lock()
	f.ReadError = err
	f.mu.Unlock()
}

// Reads returns how many times Level was called for pin.
func (f *FakeReader) Reads(pin int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[pin]
}

// Close records the call.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

// Closes returns how many times Close was called.
func (f *FakeReader) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	f.index = make(map[int]int)
	f.reads = make(map[int]int)
	f.closes = 0
	f.mu.Unlock()
}
