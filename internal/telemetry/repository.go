package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Repository defines the interface for telemetry persistence operations.
type Repository interface {
	// UpsertValueType creates the value type if it is unknown, otherwise
	// partially updates it. A non-empty supplied field overwrites the
	// stored one; a stored field that is still empty receives its
	// synthesized default; every other field is left untouched. Nil
	// means "not supplied". Returns the persisted state.
	UpsertValueType(ctx context.Context, id int, name, unit *string) (*ValueType, error)

	// GetValueType returns a single value type by ID.
	// Returns ErrValueTypeNotFound when no row matches and
	// ErrMultipleResults when more than one does.
	GetValueType(ctx context.Context, id int) (*ValueType, error)

	// ListValueTypes returns all value types ordered by ID.
	ListValueTypes(ctx context.Context) ([]ValueType, error)

	// UpsertDeviceType creates or partially updates a device type with
	// the same merge rules as UpsertValueType.
	UpsertDeviceType(ctx context.Context, id int, name, location *string) (*DeviceType, error)

	// GetDeviceType returns a single device type by ID.
	// Returns ErrDeviceTypeNotFound when no row matches and
	// ErrMultipleResults when more than one does.
	GetDeviceType(ctx context.Context, id int) (*DeviceType, error)

	// InsertValue appends a measurement sample. An unknown value type id
	// is created with synthesized defaults as part of the same
	// transaction, so a crash can never leave a sample without its type.
	InsertValue(ctx context.Context, t int64, valueTypeID int, v float64) error

	// ListValues returns samples matching the filter, ordered by
	// ascending time. An empty result is a normal outcome, not an error.
	ListValues(ctx context.Context, filter ValueFilter) ([]Value, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB

	mu       sync.RWMutex
	onInsert func(Value)
}

// NewSQLiteRepository creates a new SQLite-backed telemetry repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SetOnInsert registers a callback invoked after each committed value
// insert, with the persisted row. At most one callback is supported;
// passing nil clears it. The callback runs on the inserting goroutine
// and must not block.
func (r *SQLiteRepository) SetOnInsert(fn func(Value)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onInsert = fn
}

func (r *SQLiteRepository) insertCallback() func(Value) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onInsert
}

// UpsertValueType creates or partially updates a value type.
func (r *SQLiteRepository) UpsertValueType(ctx context.Context, id int, name, unit *string) (*ValueType, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	vt, err := upsertValueTypeTx(ctx, tx, id, name, unit)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing value type %d: %w", id, err)
	}
	return vt, nil
}

// upsertValueTypeTx performs the value type merge inside an existing
// transaction. InsertValue shares this path for auto-creation.
func upsertValueTypeTx(ctx context.Context, tx *sql.Tx, id int, name, unit *string) (*ValueType, error) {
	var vt ValueType
	err := tx.QueryRowContext(ctx,
		"SELECT id, name, unit FROM value_type WHERE id = ?", id,
	).Scan(&vt.ID, &vt.Name, &vt.Unit)

	exists := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
		vt = ValueType{ID: id}
	case err != nil:
		return nil, fmt.Errorf("querying value type %d: %w", id, err)
	}

	mergeField(&vt.Name, name, defaultTypeName(id))
	mergeField(&vt.Unit, unit, defaultTypeUnit(id))

	if exists {
		_, err = tx.ExecContext(ctx,
			"UPDATE value_type SET name = ?, unit = ? WHERE id = ?",
			vt.Name, vt.Unit, vt.ID)
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO value_type (id, name, unit) VALUES (?, ?, ?)",
			vt.ID, vt.Name, vt.Unit)
	}
	if err != nil {
		if isConstraintError(err) {
			return nil, fmt.Errorf("writing value type %d: %w", id, ErrConflict)
		}
		return nil, fmt.Errorf("writing value type %d: %w", id, err)
	}
	return &vt, nil
}

// UpsertDeviceType creates or partially updates a device type.
func (r *SQLiteRepository) UpsertDeviceType(ctx context.Context, id int, name, location *string) (*DeviceType, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var dt DeviceType
	err = tx.QueryRowContext(ctx,
		"SELECT id, name, location FROM device_type WHERE id = ?", id,
	).Scan(&dt.ID, &dt.Name, &dt.Location)

	exists := true
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
		dt = DeviceType{ID: id}
	case err != nil:
		return nil, fmt.Errorf("querying device type %d: %w", id, err)
	}

	mergeField(&dt.Name, name, defaultDeviceName(id))
	mergeField(&dt.Location, location, defaultDeviceLocation(id))

	if exists {
		_, err = tx.ExecContext(ctx,
			"UPDATE device_type SET name = ?, location = ? WHERE id = ?",
			dt.Name, dt.Location, dt.ID)
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO device_type (id, name, location) VALUES (?, ?, ?)",
			dt.ID, dt.Name, dt.Location)
	}
	if err != nil {
		if isConstraintError(err) {
			return nil, fmt.Errorf("writing device type %d: %w", id, ErrConflict)
		}
		return nil, fmt.Errorf("writing device type %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing device type %d: %w", id, err)
	}
	return &dt, nil
}

// mergeField applies the partial-update rule for a dimension field:
// a supplied non-empty value overwrites, an empty stored value receives
// the default, anything else stays untouched. A supplied empty string
// deliberately does not overwrite.
func mergeField(field, supplied *string, def string) {
	switch {
	case supplied != nil && *supplied != "":
		*field = *supplied
	case *field == "":
		*field = def
	}
}

// InsertValue appends one measurement sample, creating its value type
// with synthesized defaults if it does not exist yet. Both writes share
// one transaction.
func (r *SQLiteRepository) InsertValue(ctx context.Context, t int64, valueTypeID int, v float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := upsertValueTypeTx(ctx, tx, valueTypeID, nil, nil); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO value (time, value, value_type_id) VALUES (?, ?, ?)",
		t, v, valueTypeID)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("inserting value for type %d: %w", valueTypeID, ErrConflict)
		}
		return fmt.Errorf("inserting value for type %d: %w", valueTypeID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted value id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing value for type %d: %w", valueTypeID, err)
	}

	if fn := r.insertCallback(); fn != nil {
		fn(Value{ID: id, Time: t, Value: v, ValueTypeID: valueTypeID})
	}
	return nil
}

// ListValues returns samples matching the filter ordered by ascending
// time. The type filter joins the value_type table; time bounds are
// inclusive at both ends.
func (r *SQLiteRepository) ListValues(ctx context.Context, filter ValueFilter) ([]Value, error) {
	query := "SELECT v.id, v.time, v.value, v.value_type_id FROM value v"
	var (
		where []string
		args  []any
	)
	if filter.TypeID != nil {
		query += " JOIN value_type vt ON vt.id = v.value_type_id"
		where = append(where, "vt.id = ?")
		args = append(args, *filter.TypeID)
	}
	if filter.Start != nil {
		where = append(where, "v.time >= ?")
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		where = append(where, "v.time <= ?")
		args = append(args, *filter.End)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// Equal timestamps tie-break on insertion order (autoincrement id).
	query += " ORDER BY v.time, v.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying values: %w", err)
	}
	defer rows.Close()

	var values []Value
	for rows.Next() {
		var val Value
		if err := rows.Scan(&val.ID, &val.Time, &val.Value, &val.ValueTypeID); err != nil {
			return nil, fmt.Errorf("scanning value row: %w", err)
		}
		values = append(values, val)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating value rows: %w", err)
	}
	return values, nil
}

// GetValueType returns a single value type by ID.
func (r *SQLiteRepository) GetValueType(ctx context.Context, id int) (*ValueType, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, unit FROM value_type WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("querying value type %d: %w", id, err)
	}
	defer rows.Close()

	var found []ValueType
	for rows.Next() {
		var vt ValueType
		if err := rows.Scan(&vt.ID, &vt.Name, &vt.Unit); err != nil {
			return nil, fmt.Errorf("scanning value type row: %w", err)
		}
		found = append(found, vt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating value type rows: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, ErrValueTypeNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("value type %d: %w", id, ErrMultipleResults)
	}
}

// ListValueTypes returns all value types ordered by ID.
func (r *SQLiteRepository) ListValueTypes(ctx context.Context) ([]ValueType, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, unit FROM value_type ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying value types: %w", err)
	}
	defer rows.Close()

	var types []ValueType
	for rows.Next() {
		var vt ValueType
		if err := rows.Scan(&vt.ID, &vt.Name, &vt.Unit); err != nil {
			return nil, fmt.Errorf("scanning value type row: %w", err)
		}
		types = append(types, vt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating value type rows: %w", err)
	}
	return types, nil
}

// GetDeviceType returns a single device type by ID.
func (r *SQLiteRepository) GetDeviceType(ctx context.Context, id int) (*DeviceType, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, location FROM device_type WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("querying device type %d: %w", id, err)
	}
	defer rows.Close()

	var found []DeviceType
	for rows.Next() {
		var dt DeviceType
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.Location); err != nil {
			return nil, fmt.Errorf("scanning device type row: %w", err)
		}
		found = append(found, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device type rows: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, ErrDeviceTypeNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("device type %d: %w", id, ErrMultipleResults)
	}
}

// isConstraintError checks if an error is a SQLite constraint violation
// (unique, foreign key, not null or check).
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
