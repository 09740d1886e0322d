package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestConfig writes a config file with every optional subsystem
// disabled, so run() has no external dependencies.
func writeTestConfig(t *testing.T, port int) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := fmt.Sprintf(`
database:
  path: "%s"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: %d
  timeouts:
    read: 30
    write: 30
    idle: 60

mqtt:
  enabled: false

influxdb:
  enabled: false

sensor:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`, dbPath, port)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// setConfigEnv points RDP_CONFIG at path for the duration of the test.
func setConfigEnv(t *testing.T, path string) {
	t.Helper()

	originalEnv := os.Getenv("RDP_CONFIG")
	t.Cleanup(func() { os.Setenv("RDP_CONFIG", originalEnv) })
	os.Setenv("RDP_CONFIG", path)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	setConfigEnv(t, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
database:
  path: ""

mqtt:
  enabled: false

influxdb:
  enabled: false

sensor:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	setConfigEnv(t, configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("RDP_CONFIG")
	defer os.Setenv("RDP_CONFIG", originalEnv)

	os.Unsetenv("RDP_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	setConfigEnv(t, expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_StartupAndShutdown starts the full service with all optional
// subsystems disabled, verifies it answers on /health, and checks that
// cancellation produces a clean shutdown.
func TestRun_StartupAndShutdown(t *testing.T) {
	const port = 19183

	setConfigEnv(t, writeTestConfig(t, port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- run(ctx)
	}()

	// Poll until the API answers (startup is asynchronous)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/api/v1/health", port)
	var resp *http.Response
	var err error
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get(healthURL)
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if err != nil {
		cancel()
		<-runErr
		t.Fatalf("service never became reachable: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// Trigger shutdown and wait for run to return
	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("run() returned error on shutdown: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
}
