//go:build fuzz
// +build fuzz

package codec

import (
	"bytes"
	"testing"

	"github.com/ssargent/nvrecord/pkg/checksum"
)

// FuzzRecordCodec_RoundTrip tests encode/decode round-trip with random payloads
func FuzzRecordCodec_RoundTrip(f *testing.F) {
	f.Add([]byte("x"), uint32(0xEFBEADDE), uint8(0))
	f.Add([]byte("hello\x00\x00world\x00\x00*\x00\x00\x00"), uint32(0xDEADBEEF), uint8(1))
	f.Add([]byte{0x00, 0x01, 0x02}, uint32(0), uint8(255))

	f.Fuzz(func(t *testing.T, payload []byte, magic uint32, version uint8) {
		if len(payload) == 0 || len(payload) > 4096 {
			t.Skip("payload size out of range")
		}

		for _, w := range []checksum.Width{checksum.Width16, checksum.Width32} {
			c, err := NewRecordCodec(Layout{PayloadSize: len(payload), Width: w})
			if err != nil {
				t.Fatalf("NewRecordCodec failed: %v", err)
			}

			encoded, err := c.Encode(payload, magic, version)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			record, err := c.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if record.Magic != magic || record.Version != version || !bytes.Equal(record.Payload, payload) {
				t.Errorf("round trip mismatch: got %+v", record)
			}
			if record.Checksum != c.Checksum(record) {
				t.Errorf("checksum mismatch after round trip")
			}
		}
	})
}

// FuzzRecordCodec_CorruptionDetection tests that a flipped byte is always detected
func FuzzRecordCodec_CorruptionDetection(f *testing.F) {
	f.Add([]byte("value"), uint(0), uint8(0x01))
	f.Add([]byte("hello world"), uint(7), uint8(0x80))
	f.Add([]byte("data"), uint(12), uint8(0xFF))

	f.Fuzz(func(t *testing.T, payload []byte, pos uint, mask uint8) {
		if len(payload) == 0 || len(payload) > 1024 || mask == 0 {
			t.Skip("uninteresting input")
		}

		c, err := NewRecordCodec(Layout{PayloadSize: len(payload), Width: checksum.Width16})
		if err != nil {
			t.Fatalf("NewRecordCodec failed: %v", err)
		}

		encoded, err := c.Encode(payload, 0xEFBEADDE, 1)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if int(pos) >= len(encoded) {
			t.Skip("position beyond record")
		}

		encoded[pos] ^= mask
		record, err := c.Decode(encoded)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}

		if record.Checksum == c.Checksum(record) {
			t.Errorf("corruption not detected at %d with mask %02x", pos, mask)
		}
	})
}
