package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Modbus request limits for holding registers.
const (
	maxReadRegisters  = 125
	maxWriteRegisters = 123
)

// registerClient is the part of modbus.Client the device needs.
type registerClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// ModbusConfig holds configuration for a Modbus-backed device
type ModbusConfig struct {
	Endpoint     string        // host:port of the controller
	UnitID       uint8         // Modbus slave id
	Timeout      time.Duration // Per-request timeout
	BaseRegister uint16        // First holding register of the image
	Registers    uint16        // Number of registers, two bytes each
}

// Modbus exposes a window of retentive holding registers on a remote
// controller as byte-addressable memory. Byte 2k is the high byte of register
// base+k. The connection serializes requests.
type Modbus struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  registerClient
	base    uint16
	size    int64
}

// NewModbus connects to the controller described by config
func NewModbus(config ModbusConfig) (*Modbus, error) {
	if config.Endpoint == "" {
		return nil, errors.New("modbus device: endpoint required")
	}
	if config.Registers == 0 {
		return nil, errors.New("modbus device: register count required")
	}
	if int(config.BaseRegister)+int(config.Registers) > 0x10000 {
		return nil, fmt.Errorf("modbus device: register window %d+%d exceeds address space",
			config.BaseRegister, config.Registers)
	}

	h := modbus.NewTCPClientHandler(config.Endpoint)
	h.Timeout = config.Timeout
	h.SlaveId = config.UnitID

	if err := h.Connect(); err != nil {
		return nil, err
	}

	d := newModbus(modbus.NewClient(h), config.BaseRegister, config.Registers)
	d.handler = h
	return d, nil
}

func newModbus(client registerClient, base, registers uint16) *Modbus {
	return &Modbus{
		client: client,
		base:   base,
		size:   int64(registers) * 2,
	}
}

// registerSpan returns the first register index and count covering bytes
// [off, off+n), relative to the window base.
func registerSpan(off int64, n int) (uint16, int) {
	first := off / 2
	last := (off + int64(n) - 1) / 2
	return uint16(first), int(last-first) + 1
}

func (d *Modbus) readRegisters(first uint16, count int) ([]byte, error) {
	out := make([]byte, 0, count*2)
	for done := 0; done < count; {
		qty := count - done
		if qty > maxReadRegisters {
			qty = maxReadRegisters
		}
		addr := d.base + first + uint16(done)
		res, err := d.client.ReadHoldingRegisters(addr, uint16(qty))
		if err != nil {
			return nil, err
		}
		if len(res) != qty*2 {
			return nil, fmt.Errorf("modbus device: short read at register %d: %d bytes", addr, len(res))
		}
		out = append(out, res...)
		done += qty
	}
	return out, nil
}

// Read reads n bytes at off
func (d *Modbus) Read(ctx context.Context, off int64, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckRange(d.size, off, n); err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil, ErrClosed
	}

	first, count := registerSpan(off, n)
	regs, err := d.readRegisters(first, count)
	if err != nil {
		return nil, err
	}
	start := off % 2
	return regs[start : start+int64(n)], nil
}

// Write read-modify-writes the registers p covers and sends only the runs
// of registers whose value changes
func (d *Modbus) Write(ctx context.Context, off int64, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := CheckRange(d.size, off, len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return ErrClosed
	}

	first, count := registerSpan(off, len(p))
	current, err := d.readRegisters(first, count)
	if err != nil {
		return err
	}

	next := append([]byte(nil), current...)
	copy(next[off%2:], p)

	for _, r := range changedRuns(current, next, 2) {
		for start := r.start; start < r.end; {
			end := r.end
			if end-start > maxWriteRegisters*2 {
				end = start + maxWriteRegisters*2
			}
			addr := d.base + first + uint16(start/2)
			qty := uint16((end - start) / 2)
			if _, err := d.client.WriteMultipleRegisters(addr, qty, next[start:end]); err != nil {
				return err
			}
			start = end
		}
	}
	return nil
}

// WaitReady returns once ctx allows; register writes are acknowledged
// synchronously by the controller
func (d *Modbus) WaitReady(ctx context.Context) error {
	return ctx.Err()
}

// Size returns the capacity in bytes
func (d *Modbus) Size() int64 {
	return d.size
}

// Close closes the TCP connection
func (d *Modbus) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.client = nil
	if d.handler == nil {
		return nil
	}
	err := d.handler.Close()
	d.handler = nil
	return err
}
