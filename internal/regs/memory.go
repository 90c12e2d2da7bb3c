package regs

// Write is one recorded register store.
type Write struct {
	Off   Offset
	Value uint32
}

// Memory is a Block backed by ordinary memory. It records every write so tests
// can assert on register programming sequences.
type Memory struct {
	words []uint32

	// Writes contains every Write32 call in order.
	Writes []Write

	// OnWrite, if set, is called after each store.
	OnWrite func(off Offset, v uint32)
}

// NewMemory creates a zeroed BlockLen-byte register file.
func NewMemory() *Memory {
	return &Memory{words: make([]uint32, BlockLen/4)}
}

// Read32 returns the current register value.
func (m *Memory) Read32(off Offset) uint32 {
	return m.words[index(off, BlockLen)]
}

// Write32 stores v and records the write.
func (m *Memory) Write32(off Offset, v uint32) {
	m.words[index(off, BlockLen)] = v
	m.Writes = append(m.Writes, Write{Off: off, Value: v})
	if m.OnWrite != nil {
		m.OnWrite(off, v)
	}
}

// Set pokes a register without recording a write, e.g. to simulate pin levels.
func (m *Memory) Set(off Offset, v uint32) {
	m.words[index(off, BlockLen)] = v
}

// Reset clears recorded writes.
func (m *Memory) Reset() {
	m.Writes = nil
}
