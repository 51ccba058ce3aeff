package device

import (
	"context"
	"sync"
)

// Fault describes a simulated power loss. The Call-th write after the fault
// is armed (1-based) persists only its first After changed bytes, then the
// device loses power. Every later write fails with ErrPowerLoss until
// PowerCycle is called.
type Fault struct {
	Call  int
	After int
}

// Stats counts device activity since creation or the last ResetStats.
type Stats struct {
	Writes     int // Write calls that reached the cells
	CellWrites int // Bytes that actually changed
	Reads      int
	Waits      int
}

// Memory is an in-process EEPROM simulation. It is erased to 0xFF, skips
// bytes that already hold the written value, and can inject power loss at a
// chosen write.
type Memory struct {
	mu       sync.Mutex
	data     []byte
	stats    Stats
	fault    *Fault
	calls    int
	poweroff bool
	closed   bool
}

// NewMemory creates an erased device of the given size.
func NewMemory(size int) *Memory {
	return &Memory{data: erased(size)}
}

// NewMemoryFrom creates a device holding a copy of image.
func NewMemoryFrom(image []byte) *Memory {
	return &Memory{data: append([]byte(nil), image...)}
}

// Read returns a copy of n bytes starting at off.
func (m *Memory) Read(ctx context.Context, off int64, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if err := CheckRange(int64(len(m.data)), off, n); err != nil {
		return nil, err
	}

	m.stats.Reads++
	return append([]byte(nil), m.data[off:off+int64(n)]...), nil
}

// Write updates the cells at off, skipping those that already match.
func (m *Memory) Write(ctx context.Context, off int64, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.poweroff {
		return ErrPowerLoss
	}
	if err := CheckRange(int64(len(m.data)), off, len(p)); err != nil {
		return err
	}

	m.calls++
	budget := -1
	if m.fault != nil && m.calls == m.fault.Call {
		budget = m.fault.After
	}

	m.stats.Writes++
	for i, b := range p {
		cell := &m.data[off+int64(i)]
		if *cell == b {
			continue
		}
		if budget == 0 {
			break
		}
		*cell = b
		m.stats.CellWrites++
		if budget > 0 {
			budget--
		}
	}

	if budget >= 0 {
		m.poweroff = true
		m.fault = nil
		return ErrPowerLoss
	}
	return nil
}

// WaitReady returns immediately; simulated writes complete synchronously.
func (m *Memory) WaitReady(ctx context.Context) error {
	m.mu.Lock()
	m.stats.Waits++
	m.mu.Unlock()
	return ctx.Err()
}

// Size returns the capacity in bytes.
func (m *Memory) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}

// Close marks the device closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// InjectFault arms a simulated power loss. Write calls are counted from the
// moment the fault is armed.
func (m *Memory) InjectFault(f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = &f
	m.calls = 0
}

// PowerCycle restores power after a simulated loss and disarms any fault.
func (m *Memory) PowerCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poweroff = false
	m.fault = nil
	m.calls = 0
}

// Image returns a copy of the whole device.
func (m *Memory) Image() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// Poke overwrites cells directly, bypassing statistics and faults. Tests use
// it to corrupt records.
func (m *Memory) Poke(off int64, p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[off:], p)
}

// Stats returns the activity counters.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// ResetStats zeroes the activity counters.
func (m *Memory) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = Stats{}
}
