// RDP - sensor measurement persistence service
//
// This is the main entry point for the RDP service. It wires together:
//   - SQLite storage for value types, device types and measurements
//   - The HTTP REST API with a WebSocket live feed
//   - The optional MQTT ingest bridge for published samples
//   - The optional InfluxDB mirror for dashboard queries
//   - The optional character-device sensor reader
//
// MQTT, InfluxDB and the sensor reader are each enabled independently
// via config; the service runs with any combination of them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/MaNameJonas/rdp-api/internal/api"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/config"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/database"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/influxdb"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/logging"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/mqtt"
	"github.com/MaNameJonas/rdp-api/internal/ingest"
	"github.com/MaNameJonas/rdp-api/internal/sensor"
	"github.com/MaNameJonas/rdp-api/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting RDP service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Prepare the measurement store
	repo := telemetry.NewSQLiteRepository(db.DB)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("preparing schema: %w", err)
	}
	log.Info("schema ready")

	// The WebSocket hub is created here rather than inside the API
	// server because the storage fanout below broadcasts through it.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Connect to MQTT broker (optional). A broker outage must not take
	// the REST API down with it, so a failed connect only logs a
	// warning; /health reports the missing ingest path.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg.MQTT, log)
		if err != nil {
			log.Warn("MQTT unavailable, continuing without ingest", "error", err)
			mqttClient = nil
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Fan out newly stored measurements to WebSocket clients and the
	// time-series mirror. Every ingest path (REST, MQTT, sensor) goes
	// through the repository, so this single hook covers them all.
	repo.SetOnInsert(func(v telemetry.Value) {
		hub.BroadcastValue(v)
		if influxClient != nil {
			influxClient.WriteValue(v.ValueTypeID, v.Time, v.Value)
		}
	})

	// Start MQTT ingest bridge (requires a connected client)
	if mqttClient != nil {
		bridge, bridgeErr := ingest.New(ingest.Options{
			MQTT:   mqttClient,
			Store:  repo,
			Logger: log,
			QoS:    byte(cfg.MQTT.QoS),
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating ingest bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting ingest bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping ingest bridge")
			bridge.Stop()
		}()
	}

	// Start sensor reader (optional)
	if cfg.Sensor.Enabled {
		reader := sensor.New(cfg.Sensor, repo, log)
		reader.Start(ctx)
		defer func() {
			log.Info("stopping sensor reader")
			reader.Stop()
		}()
		log.Info("sensor reader started", "device", cfg.Sensor.Device)
	} else {
		log.Info("sensor reader disabled")
	}

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Repo:        repo,
		DB:          db,
		MQTT:        mqttClient,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stops accepting requests)
	// 2. Sensor reader
	// 3. Ingest bridge (stops feeding the store)
	// 4. InfluxDB (flushes buffered points, if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("RDP service stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RDP_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RDP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects to the broker with a per-process unique client
// id so restarting instances do not evict each other's sessions.
//
// Parameters:
//   - cfg: MQTT configuration
//   - log: Logger instance
//
// Returns:
//   - *mqtt.Client: Connected client
//   - error: If the connection cannot be established
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	cfg.Broker.ClientID = fmt.Sprintf("%s-%s", cfg.Broker.ClientID, uuid.New().String()[:8])

	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, err
	}

	// Handler errors (e.g. store failures in the ingest bridge) surface
	// through the client's logger.
	client.SetLogger(log)

	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled or unreachable)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT (if connected)
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
