// Package dump renders raw record bytes for diagnostics.
//
// A Dumper is a record.Observer that logs every classification together with
// a hex dump of the bytes that were classified. It only reports; it never
// changes what an operation does.
package dump

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ssargent/nvrecord/pkg/record"
)

// BytesPerLine is the width of one dump line. Lines break on addresses that
// are multiples of it.
const BytesPerLine = 8

// Lines renders raw, which starts at device address addr, as dump lines of
// the form "@0010: DE AD BE EF".
func Lines(addr int64, raw []byte) []string {
	var lines []string
	var sb strings.Builder
	for i, b := range raw {
		a := addr + int64(i)
		if i == 0 || a%BytesPerLine == 0 {
			if i > 0 {
				lines = append(lines, sb.String())
				sb.Reset()
			}
			fmt.Fprintf(&sb, "@%04X:", a)
		}
		fmt.Fprintf(&sb, " %02X", b)
	}
	if sb.Len() > 0 {
		lines = append(lines, sb.String())
	}
	return lines
}

// Format renders raw as newline-terminated dump lines.
func Format(addr int64, raw []byte) string {
	lines := Lines(addr, raw)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Dumper logs classifications and operation results.
type Dumper struct {
	logger *slog.Logger
	level  slog.Level
}

// Option configures a Dumper.
type Option func(*Dumper)

// WithLevel sets the level dumps are logged at. The default is Info so that
// enabling the dumper is enough to see its output.
func WithLevel(level slog.Level) Option {
	return func(d *Dumper) {
		d.level = level
	}
}

// New creates a Dumper writing to logger, or to slog.Default when logger is
// nil.
func New(logger *slog.Logger, opts ...Option) *Dumper {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dumper{logger: logger, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Classified logs the state and a dump of raw.
func (d *Dumper) Classified(op string, addr int64, state record.State, raw []byte) {
	ctx := context.Background()
	if !d.logger.Enabled(ctx, d.level) {
		return
	}

	d.logger.Log(ctx, d.level, "record classified",
		"op", op,
		"addr", addr,
		"state", state.String(),
		"size", len(raw))
	for _, line := range Lines(addr, raw) {
		d.logger.Log(ctx, d.level, "dump", "line", line)
	}
}

// Finished logs the outcome of an operation.
func (d *Dumper) Finished(op string, err error, elapsed time.Duration) {
	if err != nil {
		d.logger.Log(context.Background(), d.level, "record operation finished",
			"op", op,
			"status", "error",
			"error", err.Error(),
			"elapsed", elapsed)
		return
	}
	d.logger.Log(context.Background(), d.level, "record operation finished",
		"op", op,
		"status", "ok",
		"elapsed", elapsed)
}
