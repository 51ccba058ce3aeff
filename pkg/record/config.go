package record

import (
	"io"
	"log/slog"
	"time"

	"github.com/ssargent/nvrecord/pkg/checksum"
)

// DefaultMagic is the sentinel used when none is configured. Stored
// little-endian it reads DE AD BE EF on the device.
const DefaultMagic uint32 = 0xEFBEADDE

// Config identifies the record format. Bump Version whenever the payload
// layout changes; records of any other version read as Corrupt.
type Config struct {
	Magic   uint32
	Version uint8
	Width   checksum.Width
}

// DefaultConfig returns the default record format
func DefaultConfig() Config {
	return Config{
		Magic:   DefaultMagic,
		Version: 0,
		Width:   checksum.Width16,
	}
}

// Observer receives diagnostics. Implementations must not block for long and
// cannot influence the operation that reported to them.
type Observer interface {
	// Classified is called whenever a record read from the device has been
	// classified. raw is the record as read and must not be retained.
	Classified(op string, addr int64, state State, raw []byte)
	// Finished is called when a public operation completes.
	Finished(op string, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) Classified(string, int64, State, []byte) {}
func (nopObserver) Finished(string, error, time.Duration)   {}

// Observers fans diagnostics out to several observers.
type Observers []Observer

// Classified forwards to every observer
func (o Observers) Classified(op string, addr int64, state State, raw []byte) {
	for _, obs := range o {
		obs.Classified(op, addr, state, raw)
	}
}

// Finished forwards to every observer
func (o Observers) Finished(op string, err error, elapsed time.Duration) {
	for _, obs := range o {
		obs.Finished(op, err, elapsed)
	}
}

type options struct {
	observer Observer
	logger   *slog.Logger
}

// Option configures a Block or Manager.
type Option func(*options)

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// WithLogger sets the logger for protocol steps. Steps log at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(opts *options) {
		if l != nil {
			opts.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		observer: nopObserver{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
