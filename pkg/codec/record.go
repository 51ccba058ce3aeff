package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/ssargent/nvrecord/pkg/checksum"
)

// Field offsets and sizes of the header.
const (
	MagicOffset   = 0
	MagicSize     = 4
	VersionOffset = MagicOffset + MagicSize
	VersionSize   = 1
	PayloadOffset = VersionOffset + VersionSize
)

// Layout fixes the size of a record.
type Layout struct {
	PayloadSize int            // Size of the payload in bytes
	Width       checksum.Width // Checksum algorithm and field width
}

// Size returns the total size of an encoded record.
func (l Layout) Size() int {
	return PayloadOffset + l.PayloadSize + l.Width.Size()
}

// ChecksumOffset returns the offset of the checksum field.
func (l Layout) ChecksumOffset() int {
	return PayloadOffset + l.PayloadSize
}

// Validate checks that the layout can be encoded.
func (l Layout) Validate() error {
	if l.PayloadSize <= 0 {
		return fmt.Errorf("payload size must be positive, got %d", l.PayloadSize)
	}
	if !l.Width.Valid() {
		return fmt.Errorf("unsupported checksum width %d", int(l.Width))
	}
	return nil
}

// Record is a decoded record. Nothing about it is trusted until classified.
type Record struct {
	Magic    uint32 // Sentinel, or its complement while a commit is pending
	Version  uint8  // Payload layout version
	Payload  []byte // Opaque payload bytes
	Checksum uint32 // Stored checksum, low 16 bits used for Width16
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Payload = append([]byte(nil), r.Payload...)
	return &c
}

// RecordCodec handles serialization and deserialization of records
type RecordCodec struct {
	layout Layout
}

// NewRecordCodec creates a codec for the given layout
func NewRecordCodec(layout Layout) (*RecordCodec, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &RecordCodec{layout: layout}, nil
}

// Layout returns the layout this codec was built for.
func (c *RecordCodec) Layout() Layout {
	return c.layout
}

// Size returns the size of an encoded record.
func (c *RecordCodec) Size() int {
	return c.layout.Size()
}

// Encode builds a record for payload and serializes it with a freshly
// computed checksum.
func (c *RecordCodec) Encode(payload []byte, magic uint32, version uint8) ([]byte, error) {
	if len(payload) != c.layout.PayloadSize {
		return nil, fmt.Errorf("payload size mismatch: %d != %d", len(payload), c.layout.PayloadSize)
	}

	r := &Record{Magic: magic, Version: version, Payload: payload}
	r.Checksum = c.Checksum(r)
	return c.Marshal(r), nil
}

// Marshal serializes r exactly as it is, without touching the checksum.
// A payload shorter than the layout is zero padded, a longer one truncated.
func (c *RecordCodec) Marshal(r *Record) []byte {
	buf := make([]byte, c.layout.Size())
	c.put(buf, r)
	return buf
}

// Decode reinterprets data as a record. It performs no validation beyond
// checking the length.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	if len(data) != c.layout.Size() {
		return nil, fmt.Errorf("record size mismatch: %d != %d", len(data), c.layout.Size())
	}

	r := &Record{}
	r.Magic = binary.LittleEndian.Uint32(data[MagicOffset:])
	r.Version = data[VersionOffset]
	r.Payload = append([]byte(nil), data[PayloadOffset:c.layout.ChecksumOffset()]...)

	sum := data[c.layout.ChecksumOffset():]
	switch c.layout.Width {
	case checksum.Width16:
		r.Checksum = uint32(binary.LittleEndian.Uint16(sum))
	default:
		r.Checksum = binary.LittleEndian.Uint32(sum)
	}

	return r, nil
}

// Checksum computes the checksum r should carry: the record serialized with
// its checksum field zeroed.
func (c *RecordCodec) Checksum(r *Record) uint32 {
	zeroed := *r
	zeroed.Checksum = 0
	return checksum.Compute(c.layout.Width, c.Marshal(&zeroed))
}

// EncodeMagic serializes a magic value the way it sits on the device.
func EncodeMagic(magic uint32) []byte {
	buf := make([]byte, MagicSize)
	binary.LittleEndian.PutUint32(buf, magic)
	return buf
}

// DecodeMagic is the inverse of EncodeMagic.
func DecodeMagic(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data)
}

func (c *RecordCodec) put(buf []byte, r *Record) {
	binary.LittleEndian.PutUint32(buf[MagicOffset:], r.Magic)
	buf[VersionOffset] = r.Version
	copy(buf[PayloadOffset:c.layout.ChecksumOffset()], r.Payload)

	sum := buf[c.layout.ChecksumOffset():]
	switch c.layout.Width {
	case checksum.Width16:
		binary.LittleEndian.PutUint16(sum, uint16(r.Checksum))
	default:
		binary.LittleEndian.PutUint32(sum, r.Checksum)
	}
}
