// Package mqtt provides MQTT client connectivity for the RDP service.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the ingest bus for sensor readings: devices publish measurements
// to per-type topics and the service subscribes with a wildcard, persisting
// each reading as it arrives. The broker decouples the service from the
// fleet of publishing sensors.
//
//	Sensors → MQTT Broker → RDP service → SQLite
//
// # Topic Scheme
//
// All topics share a configurable prefix (default "rdp"):
//
//	rdp/value/<type_id>  — one reading for the given value type (JSON payload)
//	rdp/status           — retained service status (online/offline, LWT)
//
// The Topics type builds and parses these; use Client.Topics() to obtain
// one bound to the configured prefix.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to readings for every value type
//	err = client.Subscribe(client.Topics().AllValues(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a reading
//	topic := client.Topics().Value(3)
//	client.Publish(topic, []byte(`{"time":1696000000,"value":21.5}`), 1, false)
package mqtt
