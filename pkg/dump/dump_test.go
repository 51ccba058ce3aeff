package dump

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/ssargent/nvrecord/pkg/record"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func sequence(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i)
	}
	return p
}

func TestFormat(t *testing.T) {
	testCases := []struct {
		name string
		addr int64
		raw  []byte
	}{
		{name: "format_aligned", addr: 0x10, raw: sequence(10)},
		{name: "format_unaligned", addr: 0x0D, raw: []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}},
		{name: "format_record", addr: 5, raw: sequence(25)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			newGoldie(t).Assert(t, tc.name, []byte(Format(tc.addr, tc.raw)))
		})
	}
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(0, nil))
	assert.Empty(t, Lines(0x20, nil))
}

func TestLines_BreakOnAlignment(t *testing.T) {
	lines := Lines(7, []byte{1, 2})
	assert.Equal(t, []string{"@0007: 01", "@0008: 02"}, lines)
}

func newTestLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == "elapsed") {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func TestDumper(t *testing.T) {
	var buf bytes.Buffer
	d := New(newTestLogger(&buf, slog.LevelInfo))

	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x48, 0x65, 0x6C, 0x6C, 0x6F}
	d.Classified("load", 8, record.Formatted, raw)
	d.Finished("load", nil, time.Millisecond)
	d.Classified("save", 8, record.PendingCommit, raw[:4])
	d.Finished("save", errors.New("precondition violated"), time.Millisecond)

	newGoldie(t).Assert(t, "dumper", buf.Bytes())
}

func TestDumper_LevelFiltered(t *testing.T) {
	var buf bytes.Buffer
	d := New(newTestLogger(&buf, slog.LevelInfo), WithLevel(slog.LevelDebug))

	d.Classified("load", 0, record.Corrupt, sequence(16))
	assert.Zero(t, buf.Len())
}

func TestDumper_IsObserver(t *testing.T) {
	var _ record.Observer = New(nil)
}
