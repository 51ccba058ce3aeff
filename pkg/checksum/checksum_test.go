package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16_KnownVectors(t *testing.T) {
	testCases := []struct {
		name  string
		input []byte
		want  uint16
	}{
		{name: "empty input returns seed", input: nil, want: 0xFFFF},
		{name: "check string", input: []byte("123456789"), want: 0x29B1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CRC16(tc.input))
		})
	}
}

func TestCompute(t *testing.T) {
	input := []byte("123456789")

	assert.Equal(t, uint32(0x29B1), Compute(Width16, input))
	assert.Equal(t, uint32(0xCBF43926), Compute(Width32, input))
	assert.Panics(t, func() { Compute(Width(8), input) })
}

func TestCompute_Deterministic(t *testing.T) {
	input := []byte("hello world")
	for _, w := range []Width{Width16, Width32} {
		assert.Equal(t, Compute(w, input), Compute(w, input), w.String())
	}
}

func TestCompute_OrderDependent(t *testing.T) {
	for _, w := range []Width{Width16, Width32} {
		assert.NotEqual(t, Compute(w, []byte{0x01, 0x02}), Compute(w, []byte{0x02, 0x01}), w.String())
	}
}

func TestCompute_SingleBitFlipChangesOutput(t *testing.T) {
	input := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 'h', 'e', 'l', 'l', 'o', 0x00, 0x2A}

	for _, w := range []Width{Width16, Width32} {
		t.Run(w.String(), func(t *testing.T) {
			base := Compute(w, input)
			for i := range input {
				for bit := 0; bit < 8; bit++ {
					flipped := append([]byte(nil), input...)
					flipped[i] ^= 1 << bit
					assert.NotEqual(t, base, Compute(w, flipped), "byte %d bit %d", i, bit)
				}
			}
		})
	}
}

func TestNew_StreamingMatchesCompute(t *testing.T) {
	input := []byte("streamed in several chunks")

	for _, w := range []Width{Width16, Width32} {
		t.Run(w.String(), func(t *testing.T) {
			h, err := New(w)
			require.NoError(t, err)

			_, _ = h.Write(input[:5])
			_, _ = h.Write(input[5:12])
			_, _ = h.Write(input[12:])

			assert.Equal(t, Compute(w, input), h.Sum32())
			assert.Len(t, h.Sum(nil), w.Size())

			h.Reset()
			_, _ = h.Write(input)
			assert.Equal(t, Compute(w, input), h.Sum32())
		})
	}
}

func TestNew_UnsupportedWidth(t *testing.T) {
	_, err := New(Width(24))
	assert.Error(t, err)
}

func TestWidth(t *testing.T) {
	assert.Equal(t, 2, Width16.Size())
	assert.Equal(t, 4, Width32.Size())
	assert.True(t, Width16.Valid())
	assert.True(t, Width32.Valid())
	assert.False(t, Width(0).Valid())
	assert.Equal(t, "Width(7)", Width(7).String())
}
