package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteValue mirrors a single stored measurement to InfluxDB.
//
// This is the primary method for the time-series mirror: every reading
// persisted to SQLite is forwarded here. The write is non-blocking; data
// is batched and sent asynchronously, so a slow or unreachable InfluxDB
// never stalls the insert path.
//
// The point is written to the "value" measurement with the value type id
// as a tag and the reading's own timestamp (seconds since epoch), so the
// mirror stays aligned with the relational store even for backfilled data.
//
// Parameters:
//   - typeID: The value type the reading belongs to
//   - unixTime: Reading timestamp in seconds since epoch
//   - value: The measured value
//
// Example:
//
//	client.WriteValue(3, 1696000000, 21.5)
func (c *Client) WriteValue(typeID int, unixTime int64, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"value",
		map[string]string{
			"value_type_id": strconv.Itoa(typeID),
		},
		map[string]interface{}{
			"value": value,
		},
		time.Unix(unixTime, 0),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit WriteValue, such as service
// level statistics.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("ingest_stats",
//	    map[string]string{"source": "mqtt"},
//	    map[string]interface{}{"accepted": 120, "dropped": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
