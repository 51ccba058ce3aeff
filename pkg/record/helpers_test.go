package record

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/nvrecord/pkg/checksum"
	"github.com/ssargent/nvrecord/pkg/device"
)

const (
	testMagic   uint32 = 0xDEADBEEF
	testAddr    int64  = 8
	testDevSize        = 64
)

// helloPayload mirrors the classic settings example: two short strings and
// the answer.
type helloPayload struct {
	H      [7]byte
	W      [7]byte
	Answer uint32
}

func newHello(h, w string, answer uint32) helloPayload {
	var p helloPayload
	copy(p.H[:], h)
	copy(p.W[:], w)
	p.Answer = answer
	return p
}

func testConfig() Config {
	return Config{Magic: testMagic, Version: 1, Width: checksum.Width16}
}

func helloCodec(t *testing.T) BinaryPayload[helloPayload] {
	t.Helper()
	pc, err := NewBinaryPayload[helloPayload]()
	require.NoError(t, err)
	return pc
}

func newHelloManager(t *testing.T, dev device.Device, defaults helloPayload, opts ...Option) *Manager[helloPayload] {
	t.Helper()
	m, err := New(context.Background(), dev, testAddr, testConfig(), helloCodec(t), defaults, opts...)
	require.NoError(t, err)
	return m
}

func openHelloManager(t *testing.T, dev device.Device, opts ...Option) *Manager[helloPayload] {
	t.Helper()
	m, err := Open(context.Background(), dev, testAddr, testConfig(), helloCodec(t), opts...)
	require.NoError(t, err)
	return m
}

func garbageDevice(size int) *device.Memory {
	image := make([]byte, size)
	for i := range image {
		image[i] = byte(i*37 + 11)
	}
	return device.NewMemoryFrom(image)
}

type classification struct {
	op    string
	state State
}

type finished struct {
	op  string
	err error
}

// recordingObserver keeps every callback for assertions.
type recordingObserver struct {
	mu         sync.Mutex
	classified []classification
	finished   []finished
}

func (o *recordingObserver) Classified(op string, _ int64, state State, _ []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.classified = append(o.classified, classification{op: op, state: state})
}

func (o *recordingObserver) Finished(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, finished{op: op, err: err})
}
