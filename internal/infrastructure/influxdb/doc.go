// Package influxdb provides the optional time-series mirror for the RDP
// service.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking point writing, and health monitoring.
//
// # Purpose
//
// SQLite remains the source of truth for all stored readings; this
// package duplicates each reading into InfluxDB so dashboards and
// retention-policy tooling can work against a real time-series store.
// The mirror is best-effort: write failures are reported via callback
// and never fail the relational insert.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "rdp",
//	    Bucket: "values",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Mirror a stored reading
//	client.WriteValue(3, 1696000000, 21.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency sensor data.
package influxdb
