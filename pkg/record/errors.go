package record

// Errors. Operations wrap these with context; match them with errors.Is.
var (
	// ErrDevice reports a failed read, write or ready-wait at the device.
	ErrDevice = &RecordError{"device access failed"}
	// ErrFormatMismatch reports a record classified Corrupt.
	ErrFormatMismatch = &RecordError{"record format mismatch"}
	// ErrPrecondition reports an operation invoked from the wrong state.
	ErrPrecondition = &RecordError{"precondition violated"}
	// ErrNoData is returned by Data and Load when the record is not Formatted.
	ErrNoData = &RecordError{"no valid data"}
	// ErrOutOfBounds reports a record that does not fit its device.
	ErrOutOfBounds = &RecordError{"record outside device bounds"}
)

// RecordError represents a record store error
type RecordError struct {
	Message string
}

func (e *RecordError) Error() string {
	return e.Message
}
