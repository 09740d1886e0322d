// Package telemetry persists time-stamped sensor measurements and the
// dimension records describing their origin.
//
// It defines the data model used by RDP: ValueTypes describe measurement
// kinds (temperature, humidity), DeviceTypes describe physical devices,
// and Values are the immutable samples linked to their ValueType.
// Dimension records are created or merged through upserts with
// default-name synthesis; inserting a sample for an unknown type creates
// the type on the fly with synthesized defaults.
//
// The package provides a Repository interface with a SQLite
// implementation. Every mutating operation runs inside its own
// transaction and either commits fully or rolls back and surfaces the
// failure; the package never retries internally.
//
// # Thread Safety
//
// SQLiteRepository is safe for concurrent use from multiple goroutines.
// Concurrent creators of the same dimension id are arbitrated by the
// primary key constraint; the losing writer receives ErrConflict.
package telemetry
