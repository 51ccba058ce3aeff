//go:build bench
// +build bench

package codec

import (
	"bytes"
	"testing"

	"github.com/ssargent/nvrecord/pkg/checksum"
)

func BenchmarkRecordCodec_Encode(b *testing.B) {
	benchmarks := []struct {
		name    string
		payload []byte
		width   checksum.Width
	}{
		{name: "small/crc16", payload: bytes.Repeat([]byte("p"), 18), width: checksum.Width16},
		{name: "small/crc32", payload: bytes.Repeat([]byte("p"), 18), width: checksum.Width32},
		{name: "page/crc16", payload: bytes.Repeat([]byte("p"), 256), width: checksum.Width16},
		{name: "page/crc32", payload: bytes.Repeat([]byte("p"), 256), width: checksum.Width32},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			codec, err := NewRecordCodec(Layout{PayloadSize: len(bm.payload), Width: bm.width})
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := codec.Encode(bm.payload, 0xEFBEADDE, 1); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRecordCodec_Decode(b *testing.B) {
	codec, err := NewRecordCodec(Layout{PayloadSize: 256, Width: checksum.Width16})
	if err != nil {
		b.Fatal(err)
	}
	encoded, err := codec.Encode(bytes.Repeat([]byte("p"), 256), 0xEFBEADDE, 1)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Decode(encoded); err != nil {
			b.Fatal(err)
		}
	}
}
