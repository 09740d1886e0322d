// Package api implements the HTTP REST API and WebSocket server for the
// RDP service.
//
// This package provides:
//   - REST endpoints for value types, device types and measurement values
//   - WebSocket hub for a real-time feed of newly stored values
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between data consumers (dashboards, scripts,
// exports) and the SQLite measurement store. Writes arrive through
// POST /api/v1/values or through out-of-band ingestion paths (serial
// sensor reader, MQTT); every committed value is fanned out to
// WebSocket clients via the hub.
//
// # Endpoints
//
// All routes are rooted at /api/v1:
//
//	GET  /              service name and version
//	GET  /health        liveness plus database and MQTT status
//	GET  /types         list value types
//	GET  /types/{id}    fetch one value type
//	PUT  /types/{id}    create or partially update a value type
//	GET  /devices/{id}  fetch one device type
//	PUT  /devices/{id}  create or partially update a device type
//	GET  /values        list values (type_id, start, end filters)
//	POST /values        store a measurement sample
//	GET  /ws            WebSocket live value feed (optional type_id)
//
// # Graceful Degradation
//
// The server operates without MQTT and without InfluxDB — persistence
// and the live feed keep working; /health reports the degraded parts.
package api
