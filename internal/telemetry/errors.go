package telemetry

import "errors"

// Domain errors for the telemetry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, telemetry.ErrValueTypeNotFound) {
//	    // handle not found case
//	}
var (
	// ErrValueTypeNotFound is returned when a value type ID does not exist.
	ErrValueTypeNotFound = errors.New("telemetry: value type not found")

	// ErrDeviceTypeNotFound is returned when a device type ID does not exist.
	ErrDeviceTypeNotFound = errors.New("telemetry: device type not found")

	// ErrMultipleResults is returned when a lookup by unique ID matches
	// more than one row. The primary key should make this impossible;
	// seeing it means the store has lost internal consistency.
	ErrMultipleResults = errors.New("telemetry: multiple rows for unique id")

	// ErrConflict is returned when a write loses a race to a concurrent
	// writer or violates an integrity constraint. The transaction is
	// rolled back and nothing is applied; callers may retry with fresh
	// state.
	ErrConflict = errors.New("telemetry: write conflict")
)
