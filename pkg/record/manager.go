package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/ssargent/nvrecord/pkg/codec"
	"github.com/ssargent/nvrecord/pkg/device"
)

// Manager owns an in-memory buffer of one record and keeps it in step with
// the device through Load, Save and Format.
//
// Use one Manager per record address. A Manager is not safe for concurrent
// use; callers sharing one across goroutines must serialize access.
type Manager[T any] struct {
	block   *Block
	payload PayloadCodec[T]
	buffer  *codec.Record
}

func newManager[T any](dev device.Device, addr int64, config Config, payload PayloadCodec[T], opts []Option) (*Manager[T], error) {
	if payload == nil {
		return nil, errors.New("record: nil payload codec")
	}
	if payload.Size() <= 0 {
		return nil, fmt.Errorf("record: payload size must be positive, got %d", payload.Size())
	}

	block, err := NewBlock(dev, addr, config, payload.Size(), opts...)
	if err != nil {
		return nil, err
	}

	return &Manager[T]{
		block:   block,
		payload: payload,
		buffer:  &codec.Record{Payload: make([]byte, payload.Size())},
	}, nil
}

// New loads the record at addr and formats it with defaults if it is not
// Formatted. Only configuration errors are returned. A failed format is
// logged and left for later calls to report, so the Manager is usable either
// way.
func New[T any](ctx context.Context, dev device.Device, addr int64, config Config, payload PayloadCodec[T], defaults T, opts ...Option) (*Manager[T], error) {
	m, err := newManager(dev, addr, config, payload, opts)
	if err != nil {
		return nil, err
	}

	_, err = m.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoData):
		m.block.logger.Info("record not formatted, writing defaults", "reason", err)
		if err := m.Format(ctx, defaults); err != nil {
			m.block.logger.Warn("formatting defaults failed", "error", err)
		}
	default:
		// The prior state is unknown; leave the device alone.
		m.block.logger.Warn("record could not be read, defaults not written", "error", err)
	}
	return m, nil
}

// Open loads the record at addr without ever formatting it. Accessors report
// ErrNoData until the record is valid.
func Open[T any](ctx context.Context, dev device.Device, addr int64, config Config, payload PayloadCodec[T], opts ...Option) (*Manager[T], error) {
	m, err := newManager(dev, addr, config, payload, opts)
	if err != nil {
		return nil, err
	}

	if _, err := m.Load(ctx); err != nil {
		m.block.logger.Info("record not valid, not resetting", "error", err)
	}
	return m, nil
}

// Block returns the underlying record region.
func (m *Manager[T]) Block() *Block {
	return m.block
}

// Valid classifies the buffer without touching the device.
func (m *Manager[T]) Valid() bool {
	return m.block.validator.Valid(m.buffer)
}

// Data re-reads the magic and version from the device and returns the
// buffered payload if the record is Formatted. Another context may have
// claimed or rewritten the header since the last Load, so the header is
// checked on every call.
func (m *Manager[T]) Data(ctx context.Context) (T, error) {
	var zero T

	magic, version, err := m.block.ReadHeader(ctx)
	if err != nil {
		return zero, fmt.Errorf("data: %w", err)
	}
	m.buffer.Magic = magic
	m.buffer.Version = version

	state := m.block.validator.Classify(m.buffer)
	m.block.observer.Classified("data", m.block.addr, state, m.block.codec.Marshal(m.buffer))

	switch state {
	case Formatted:
		v, err := m.payload.UnmarshalPayload(m.buffer.Payload)
		if err != nil {
			return zero, fmt.Errorf("data: %w: %w", ErrFormatMismatch, err)
		}
		return v, nil
	case PendingCommit:
		return zero, fmt.Errorf("data: %w: record is %s", ErrNoData, state)
	default:
		return zero, fmt.Errorf("data: %w: %w", ErrNoData, ErrFormatMismatch)
	}
}

// Load reads the whole record into the buffer, then behaves as Data.
func (m *Manager[T]) Load(ctx context.Context) (T, error) {
	r, _, err := m.block.readRecord(ctx, "load")
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load: %w", err)
	}
	m.buffer = r
	return m.Data(ctx)
}

// Save commits v. The record must currently be Formatted. On a precondition
// failure nothing is written and the buffer is unchanged; otherwise the
// buffer holds whatever the commit protocol last wrote or read.
func (m *Manager[T]) Save(ctx context.Context, v T) error {
	payload, err := m.payload.MarshalPayload(v)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	r, err := m.block.Save(ctx, payload)
	if r != nil {
		m.buffer = r
	}
	return err
}

// Commit saves the buffered payload as it stands, under the same
// precondition as Save. It writes back the value of the last Load or Save,
// whatever the device holds now.
func (m *Manager[T]) Commit(ctx context.Context) error {
	payload := append([]byte(nil), m.buffer.Payload...)

	r, err := m.block.Save(ctx, payload)
	if r != nil {
		m.buffer = r
	}
	return err
}

// Format commits v whatever state the record is in.
func (m *Manager[T]) Format(ctx context.Context, v T) error {
	payload, err := m.payload.MarshalPayload(v)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}

	r, err := m.block.Format(ctx, payload)
	if r != nil {
		m.buffer = r
	}
	return err
}

// Update loads the current value, applies fn to it and saves the result.
func (m *Manager[T]) Update(ctx context.Context, fn func(*T)) error {
	v, err := m.Load(ctx)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	fn(&v)
	return m.Save(ctx, v)
}

// Lock claims the record. See Block.Lock.
func (m *Manager[T]) Lock(ctx context.Context) error {
	if err := m.block.Lock(ctx); err != nil {
		return err
	}
	m.buffer.Magic = ^m.block.config.Magic
	return nil
}

// Unlock releases a claim. See Block.Unlock.
func (m *Manager[T]) Unlock(ctx context.Context) error {
	if err := m.block.Unlock(ctx); err != nil {
		return err
	}
	m.buffer.Magic = m.block.config.Magic
	return nil
}

// Locked reports whether the record carries the complemented magic.
func (m *Manager[T]) Locked(ctx context.Context) (bool, error) {
	return m.block.Locked(ctx)
}

// State reads and classifies the record on the device.
func (m *Manager[T]) State(ctx context.Context) (State, error) {
	return m.block.Classify(ctx)
}
