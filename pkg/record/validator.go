package record

import (
	"fmt"

	"github.com/ssargent/nvrecord/pkg/codec"
)

// State is the integrity state of a record, derived from its magic field.
type State int

const (
	// Corrupt is anything that is neither Formatted nor PendingCommit.
	Corrupt State = iota
	// PendingCommit means the magic holds the complemented sentinel: either a
	// commit was interrupted or the record is locked. The two cannot be told
	// apart.
	PendingCommit
	// Formatted means magic, version and checksum all match.
	Formatted
)

func (s State) String() string {
	switch s {
	case Formatted:
		return "formatted"
	case PendingCommit:
		return "pending"
	case Corrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Validator classifies decoded records against the expected magic and
// version.
type Validator struct {
	config Config
	codec  *codec.RecordCodec
}

// NewValidator creates a validator for records produced by c.
func NewValidator(config Config, c *codec.RecordCodec) *Validator {
	return &Validator{config: config, codec: c}
}

// Classify returns the state of r. A complemented magic is PendingCommit no
// matter what the rest of the record holds. A matching magic with the wrong
// version is Corrupt; versions are never migrated.
func (v *Validator) Classify(r *codec.Record) State {
	switch r.Magic {
	case v.config.Magic:
		if r.Version != v.config.Version {
			return Corrupt
		}
		if r.Checksum != v.codec.Checksum(r) {
			return Corrupt
		}
		return Formatted
	case ^v.config.Magic:
		return PendingCommit
	default:
		return Corrupt
	}
}

// Valid reports whether r is Formatted.
func (v *Validator) Valid(r *codec.Record) bool {
	return v.Classify(r) == Formatted
}
