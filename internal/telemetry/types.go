package telemetry

import "fmt"

// ValueType describes a kind of measurement (temperature, humidity, ...).
// IDs are assigned by callers, never generated. Name and unit are never
// empty once stored: fields left unset at creation time receive
// synthesized defaults derived from the id.
type ValueType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// DeviceType describes a physical device. It is a standalone dimension:
// nothing in the schema links it to stored values.
type DeviceType struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Value is a single measurement sample. Values are append-only: once
// written they are never updated or deleted, and identical samples are
// stored as separate rows.
type Value struct {
	ID          int64   `json:"id"`
	Time        int64   `json:"time"`
	Value       float64 `json:"value"`
	ValueTypeID int     `json:"value_type_id"`
}

// ValueFilter narrows a ListValues query. Nil fields are ignored; set
// fields compose conjunctively. Start and End are inclusive bounds on
// the sample time.
type ValueFilter struct {
	TypeID *int
	Start  *int64
	End    *int64
}

// Synthesized defaults for dimension fields that were never named.
func defaultTypeName(id int) string   { return fmt.Sprintf("TYPE_%d", id) }
func defaultTypeUnit(id int) string   { return fmt.Sprintf("UNIT_%d", id) }
func defaultDeviceName(id int) string { return fmt.Sprintf("DEVICE_TYPE_%d", id) }
func defaultDeviceLocation(id int) string {
	return fmt.Sprintf("DEVICE_LOCATION_%d", id)
}
