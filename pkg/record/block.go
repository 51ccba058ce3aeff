package record

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ssargent/nvrecord/pkg/checksum"
	"github.com/ssargent/nvrecord/pkg/codec"
	"github.com/ssargent/nvrecord/pkg/device"
)

// Block is the record region of a device and the commit protocol that
// updates it. It works on raw payload bytes; Manager adds a typed buffer on
// top.
//
// A Block is not safe for concurrent use, and nothing stops two Blocks from
// addressing the same region. Guarding against concurrent writers is the
// caller's job; the protocol only protects against power loss.
type Block struct {
	dev       device.Device
	addr      int64
	config    Config
	codec     *codec.RecordCodec
	validator *Validator
	observer  Observer
	logger    *slog.Logger
}

// NewBlock binds a record of payloadSize bytes to addr on dev. It fails if
// the format is invalid or the record would extend past the device, before
// touching the device at all.
func NewBlock(dev device.Device, addr int64, config Config, payloadSize int, opts ...Option) (*Block, error) {
	if dev == nil {
		return nil, errors.New("record: nil device")
	}
	if config.Width == 0 {
		config.Width = checksum.Width16
	}

	c, err := codec.NewRecordCodec(codec.Layout{PayloadSize: payloadSize, Width: config.Width})
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}

	size := int64(c.Size())
	if addr < 0 || addr > dev.Size() || size > dev.Size()-addr {
		return nil, fmt.Errorf("%w: address %d size %d device %d", ErrOutOfBounds, addr, size, dev.Size())
	}

	o := buildOptions(opts)
	return &Block{
		dev:       dev,
		addr:      addr,
		config:    config,
		codec:     c,
		validator: NewValidator(config, c),
		observer:  o.observer,
		logger:    o.logger.With("addr", addr),
	}, nil
}

// Address returns the device offset of the record
func (b *Block) Address() int64 { return b.addr }

// Size returns the encoded record size
func (b *Block) Size() int { return b.codec.Size() }

// Config returns the record format
func (b *Block) Config() Config { return b.config }

// Codec returns the codec for this record's layout
func (b *Block) Codec() *codec.RecordCodec { return b.codec }

// Validator returns the validator for this record's format
func (b *Block) Validator() *Validator { return b.validator }

func deviceError(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDevice, step, err)
}

func (b *Block) read(ctx context.Context, off int64, n int) ([]byte, error) {
	if err := b.dev.WaitReady(ctx); err != nil {
		return nil, deviceError("wait", err)
	}
	data, err := b.dev.Read(ctx, b.addr+off, n)
	if err != nil {
		return nil, deviceError("read", err)
	}
	return data, nil
}

// write brackets the device write with ready-waits so the caller only
// continues once the cells hold the new value.
func (b *Block) write(ctx context.Context, off int64, p []byte) error {
	if err := b.dev.WaitReady(ctx); err != nil {
		return deviceError("wait", err)
	}
	if err := b.dev.Write(ctx, b.addr+off, p); err != nil {
		return deviceError("write", err)
	}
	if err := b.dev.WaitReady(ctx); err != nil {
		return deviceError("wait", err)
	}
	return nil
}

func (b *Block) finish(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	b.observer.Finished(op, err, elapsed)
	if err != nil {
		b.logger.Warn("record operation failed", "op", op, "error", err)
		return
	}
	b.logger.Debug("record operation done", "op", op, "elapsed", elapsed)
}

// Raw returns the record bytes as they sit on the device.
func (b *Block) Raw(ctx context.Context) ([]byte, error) {
	return b.read(ctx, 0, b.codec.Size())
}

func (b *Block) readRecord(ctx context.Context, op string) (*codec.Record, State, error) {
	raw, err := b.Raw(ctx)
	if err != nil {
		return nil, Corrupt, err
	}
	r, err := b.codec.Decode(raw)
	if err != nil {
		return nil, Corrupt, deviceError("decode", err)
	}

	state := b.validator.Classify(r)
	b.observer.Classified(op, b.addr, state, raw)
	b.logger.Debug("record classified", "op", op, "state", state, "magic", fmt.Sprintf("%08X", r.Magic), "version", r.Version)
	return r, state, nil
}

// ReadRecord reads and classifies the whole record.
func (b *Block) ReadRecord(ctx context.Context) (*codec.Record, State, error) {
	return b.readRecord(ctx, "read")
}

// Classify reads the record and returns its state.
func (b *Block) Classify(ctx context.Context) (State, error) {
	_, state, err := b.readRecord(ctx, "classify")
	return state, err
}

// ReadHeader reads only the magic and version fields.
func (b *Block) ReadHeader(ctx context.Context) (uint32, uint8, error) {
	data, err := b.read(ctx, codec.MagicOffset, codec.MagicSize+codec.VersionSize)
	if err != nil {
		return 0, 0, err
	}
	return codec.DecodeMagic(data[codec.MagicOffset:]), data[codec.VersionOffset], nil
}

func (b *Block) readMagic(ctx context.Context) (uint32, error) {
	data, err := b.read(ctx, codec.MagicOffset, codec.MagicSize)
	if err != nil {
		return 0, err
	}
	return codec.DecodeMagic(data), nil
}

// Save commits payload over a Formatted record. It refuses to write over a
// record in any other state: an unknown prior state could otherwise be
// turned into a self-consistent but wrong record.
//
// The returned record is what the protocol last wrote or read; it is nil only
// when nothing was written.
func (b *Block) Save(ctx context.Context, payload []byte) (r *codec.Record, err error) {
	start := time.Now()
	defer func() { b.finish("save", start, err) }()

	return b.commit(ctx, "save", payload, true)
}

// Format commits payload whatever the current state of the record. It is how
// blank or corrupt records are initialized.
func (b *Block) Format(ctx context.Context, payload []byte) (r *codec.Record, err error) {
	start := time.Now()
	defer func() { b.finish("format", start, err) }()

	return b.commit(ctx, "format", payload, false)
}

// commit writes the record in two phases. The whole record first goes down
// with the complemented magic, so at no point during that write can the
// region classify as Formatted. Then the magic alone is flipped to the true
// sentinel, which is the only write that can make the record valid.
func (b *Block) commit(ctx context.Context, op string, payload []byte, requireFormatted bool) (*codec.Record, error) {
	if requireFormatted {
		_, state, err := b.readRecord(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if state != Formatted {
			return nil, fmt.Errorf("%s: %w: record is %s", op, ErrPrecondition, state)
		}
	}

	encoded, err := b.codec.Encode(payload, b.config.Magic, b.config.Version)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	candidate, err := b.codec.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	candidate.Magic = ^b.config.Magic

	b.logger.Debug("writing pending record", "op", op, "bytes", b.codec.Size())
	if err := b.write(ctx, 0, b.codec.Marshal(candidate)); err != nil {
		return candidate, fmt.Errorf("%s: %w", op, err)
	}

	b.logger.Debug("committing magic", "op", op)
	if err := b.write(ctx, codec.MagicOffset, codec.EncodeMagic(b.config.Magic)); err != nil {
		return candidate, fmt.Errorf("%s: %w", op, err)
	}

	final, state, err := b.readRecord(ctx, op)
	if err != nil {
		return candidate, fmt.Errorf("%s: %w", op, err)
	}
	if state != Formatted {
		return final, fmt.Errorf("%s: %w: record is %s after commit", op, ErrFormatMismatch, state)
	}
	if !bytes.Equal(final.Payload, payload) {
		return final, fmt.Errorf("%s: %w: payload differs after commit", op, ErrFormatMismatch)
	}
	return final, nil
}

// Lock claims a Formatted record by writing the complemented magic. Payload
// and checksum are left alone. A locked record reads as PendingCommit, the
// same as an interrupted commit.
func (b *Block) Lock(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { b.finish("lock", start, err) }()

	_, state, err := b.readRecord(ctx, "lock")
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if state != Formatted {
		return fmt.Errorf("lock: %w: record is %s", ErrPrecondition, state)
	}

	if err := b.write(ctx, codec.MagicOffset, codec.EncodeMagic(^b.config.Magic)); err != nil {
		return fmt.Errorf("lock: %w", err)
	}

	magic, err := b.readMagic(ctx)
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if magic != ^b.config.Magic {
		return fmt.Errorf("lock: %w: magic %08X after write", ErrFormatMismatch, magic)
	}
	return nil
}

// Unlock releases a PendingCommit record by restoring the true magic, and
// succeeds only if the record is then Formatted.
func (b *Block) Unlock(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { b.finish("unlock", start, err) }()

	_, state, err := b.readRecord(ctx, "unlock")
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	if state != PendingCommit {
		return fmt.Errorf("unlock: %w: record is %s", ErrPrecondition, state)
	}

	if err := b.write(ctx, codec.MagicOffset, codec.EncodeMagic(b.config.Magic)); err != nil {
		return fmt.Errorf("unlock: %w", err)
	}

	_, state, err = b.readRecord(ctx, "unlock")
	if err != nil {
		return fmt.Errorf("unlock: %w", err)
	}
	if state != Formatted {
		return fmt.Errorf("unlock: %w: record is %s after unlock", ErrFormatMismatch, state)
	}
	return nil
}

// Locked reports whether the magic field holds the complemented sentinel.
// Only the magic is read.
func (b *Block) Locked(ctx context.Context) (bool, error) {
	magic, err := b.readMagic(ctx)
	if err != nil {
		return false, err
	}
	return magic == ^b.config.Magic, nil
}
