package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/MaNameJonas/rdp-api/internal/infrastructure/config"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/logging"
)

// mockStore implements Store for testing.
type mockStore struct {
	mu      sync.Mutex
	inserts []insertedSample
	failFor int // type id whose inserts fail, 0 = never
}

type insertedSample struct {
	time   int64
	typeID int
	value  float64
}

func (m *mockStore) InsertValue(_ context.Context, t int64, valueTypeID int, v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor != 0 && valueTypeID == m.failFor {
		return fmt.Errorf("store unavailable")
	}
	m.inserts = append(m.inserts, insertedSample{time: t, typeID: valueTypeID, value: v})
	return nil
}

func (m *mockStore) getInserts() []insertedSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]insertedSample, len(m.inserts))
	copy(result, m.inserts)
	return result
}

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

// waitForInserts polls until the store holds at least n samples.
func waitForInserts(t *testing.T, store *mockStore, n int) []insertedSample {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := store.getInserts(); len(got) >= n {
			return got
		}
		time.Sleep(10 * time.Millisecond)
	}
	got := store.getInserts()
	t.Fatalf("timed out waiting for %d inserts, have %d", n, len(got))
	return got
}

// ─── Line Parsing Tests ────────────────────────────────────────────

func TestParseLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantTypeID int
		wantValue  float64
		wantErr    bool
	}{
		{name: "simple", line: "3 21.5", wantTypeID: 3, wantValue: 21.5},
		{name: "integer value", line: "1 42", wantTypeID: 1, wantValue: 42},
		{name: "negative value", line: "2 -5.5", wantTypeID: 2, wantValue: -5.5},
		{name: "scientific notation", line: "4 1.5e2", wantTypeID: 4, wantValue: 150},
		{name: "extra whitespace", line: "7   9.25", wantTypeID: 7, wantValue: 9.25},
		{name: "missing value", line: "3", wantErr: true},
		{name: "non-numeric type", line: "x 21.5", wantErr: true},
		{name: "non-numeric value", line: "3 warm", wantErr: true},
		{name: "too many fields", line: "3 21.5 extra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typeID, value, err := parseLine(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseLine(%q) expected error, got (%d, %g)", tt.line, typeID, value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLine(%q) error: %v", tt.line, err)
			}
			if typeID != tt.wantTypeID {
				t.Errorf("type id = %d, want %d", typeID, tt.wantTypeID)
			}
			if value != tt.wantValue {
				t.Errorf("value = %g, want %g", value, tt.wantValue)
			}
		})
	}
}

// ─── Stream Consumption Tests ──────────────────────────────────────

func TestConsume_StoresSamples(t *testing.T) {
	store := &mockStore{}
	r := New(config.SensorConfig{}, store, testLogger())

	before := time.Now().Unix()
	if err := r.consume(context.Background(), strings.NewReader("1 10.5\n2 20\n")); err != nil {
		t.Fatalf("consume: %v", err)
	}

	inserts := store.getInserts()
	if len(inserts) != 2 {
		t.Fatalf("inserts = %d, want 2", len(inserts))
	}
	if inserts[0].typeID != 1 || inserts[0].value != 10.5 {
		t.Errorf("first insert = %+v, want type 1 value 10.5", inserts[0])
	}
	if inserts[1].typeID != 2 || inserts[1].value != 20.0 {
		t.Errorf("second insert = %+v, want type 2 value 20", inserts[1])
	}
	if inserts[0].time < before || inserts[0].time > time.Now().Unix() {
		t.Errorf("sample timestamp %d outside read window", inserts[0].time)
	}
}

func TestConsume_SkipsMalformedLines(t *testing.T) {
	store := &mockStore{}
	r := New(config.SensorConfig{}, store, testLogger())

	input := "1 10.5\ngarbage\n2 twenty\n3 30.5\n"
	if err := r.consume(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("consume: %v", err)
	}

	inserts := store.getInserts()
	if len(inserts) != 2 {
		t.Fatalf("inserts = %d, want 2 (malformed lines skipped)", len(inserts))
	}
	if inserts[0].typeID != 1 || inserts[1].typeID != 3 {
		t.Errorf("stored types = %d, %d, want 1, 3", inserts[0].typeID, inserts[1].typeID)
	}
}

func TestConsume_SkipsBlankLines(t *testing.T) {
	store := &mockStore{}
	r := New(config.SensorConfig{}, store, testLogger())

	if err := r.consume(context.Background(), strings.NewReader("\n\n1 5.5\n   \n")); err != nil {
		t.Fatalf("consume: %v", err)
	}

	if got := len(store.getInserts()); got != 1 {
		t.Errorf("inserts = %d, want 1", got)
	}
}

func TestConsume_ContinuesAfterStoreError(t *testing.T) {
	store := &mockStore{failFor: 2}
	r := New(config.SensorConfig{}, store, testLogger())

	input := "1 10\n2 20\n3 30\n"
	if err := r.consume(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("consume: %v", err)
	}

	inserts := store.getInserts()
	if len(inserts) != 2 {
		t.Fatalf("inserts = %d, want 2 (failed insert skipped)", len(inserts))
	}
	if inserts[1].typeID != 3 {
		t.Errorf("reader stopped after store error, last type = %d, want 3", inserts[1].typeID)
	}
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestReader_ReadsFromDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor")
	if err := os.WriteFile(path, []byte("1 11.5\n2 22.5\n"), 0600); err != nil {
		t.Fatalf("write device file: %v", err)
	}

	store := &mockStore{}
	// Long retry delay so the file is not re-read within the test
	r := New(config.SensorConfig{Device: path, RetryDelay: 60}, store, testLogger())

	r.Start(context.Background())
	defer r.Stop()

	inserts := waitForInserts(t, store, 2)
	if inserts[0].typeID != 1 || inserts[1].typeID != 2 {
		t.Errorf("stored types = %d, %d, want 1, 2", inserts[0].typeID, inserts[1].typeID)
	}
}

func TestReader_StopWhileDeviceMissing(t *testing.T) {
	store := &mockStore{}
	r := New(config.SensorConfig{
		Device:     filepath.Join(t.TempDir(), "missing"),
		RetryDelay: 60,
	}, store, testLogger())

	r.Start(context.Background())
	time.Sleep(50 * time.Millisecond) // Let the loop hit the retry sleep

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not interrupt the retry sleep")
	}
}

func TestReader_StopUnblocksPendingRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensor.fifo")
	if err := syscall.Mkfifo(path, 0600); err != nil {
		t.Skipf("mkfifo not supported: %v", err)
	}

	store := &mockStore{}
	r := New(config.SensorConfig{Device: path, RetryDelay: 60}, store, testLogger())
	r.Start(context.Background())

	// Open the writer side and emit one sample; keep the fifo open so
	// the reader blocks waiting for more.
	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open fifo writer: %v", err)
	}
	defer w.Close()
	if _, err := w.WriteString("5 55.5\n"); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	waitForInserts(t, store, 1)

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not unblock the pending device read")
	}
}

func TestReader_StopIsIdempotent(t *testing.T) {
	r := New(config.SensorConfig{
		Device:     "/nonexistent/sensor",
		RetryDelay: 60,
	}, &mockStore{}, testLogger())

	r.Start(context.Background())
	r.Stop()
	r.Stop() // Second call must not panic
}
