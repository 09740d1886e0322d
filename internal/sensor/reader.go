// Package sensor reads measurement samples from a local character
// device and feeds them into the measurement store.
//
// The device emits newline-delimited samples of the form
//
//	<value_type_id> <value>
//
// e.g. "3 21.5". Samples are stamped with the wall-clock time at the
// moment they are read. The reader survives device glitches: malformed
// lines are discarded, read errors and EOF trigger a reopen after a
// configurable delay, and a missing device is retried until it appears.
package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MaNameJonas/rdp-api/internal/infrastructure/config"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/logging"
)

// defaultRetryDelay paces reopen attempts when the config leaves the
// delay unset.
const defaultRetryDelay = 1 * time.Second

// Store persists decoded samples.
type Store interface {
	InsertValue(ctx context.Context, t int64, valueTypeID int, v float64) error
}

// Reader tails the sensor character device in a background goroutine.
//
// Create with New, begin with Start, end with Stop. Stop closes the
// device to unblock a pending read and waits for the loop to exit.
type Reader struct {
	cfg    config.SensorConfig
	store  Store
	logger *logging.Logger

	// Current device handle; closed by Stop to interrupt a blocked read.
	mu   sync.Mutex
	file *os.File

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a sensor reader.
//
// Parameters:
//   - cfg: Device path and retry delay
//   - store: Destination for decoded samples
//   - logger: Structured logger
//
// Returns:
//   - *Reader: Ready to start (call Start to begin reading)
func New(cfg config.SensorConfig, store Store, logger *logging.Logger) *Reader {
	return &Reader{
		cfg:    cfg,
		store:  store,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the background read loop.
//
// Opening the device is part of the loop, so a device that is absent at
// startup is retried rather than treated as fatal.
func (r *Reader) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.runLoop(ctx)
}

// Stop shuts the reader down and waits for the loop to exit.
// Safe to call multiple times.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)

		// Unblock a read that is waiting on the device
		r.mu.Lock()
		if r.file != nil {
			r.file.Close()
		}
		r.mu.Unlock()

		r.wg.Wait()
	})
}

// runLoop opens the device and consumes samples until shutdown,
// reopening after errors and EOF.
func (r *Reader) runLoop(ctx context.Context) {
	defer r.wg.Done()

	retry := time.Duration(r.cfg.RetryDelay) * time.Second
	if retry <= 0 {
		retry = defaultRetryDelay
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		default:
		}

		f, err := os.Open(r.cfg.Device)
		if err != nil {
			r.logger.Warn("sensor device unavailable",
				"device", r.cfg.Device, "error", err)
			if !r.sleep(ctx, retry) {
				return
			}
			continue
		}
		r.setFile(f)
		r.logger.Info("sensor device opened", "device", r.cfg.Device)

		err = r.consume(ctx, f)
		r.setFile(nil)
		f.Close()

		if r.stopped(ctx) {
			return
		}
		if err != nil {
			r.logger.Warn("sensor read failed, reopening",
				"device", r.cfg.Device, "error", err)
		} else {
			r.logger.Info("sensor stream ended, reopening", "device", r.cfg.Device)
		}
		if !r.sleep(ctx, retry) {
			return
		}
	}
}

// consume decodes samples from the stream until EOF, a read error, or
// shutdown. Malformed lines and failed inserts are logged and skipped.
func (r *Reader) consume(ctx context.Context, rd io.Reader) error {
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		case <-r.done:
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		typeID, value, err := parseLine(line)
		if err != nil {
			r.logger.Warn("discarding malformed sensor line", "error", err)
			continue
		}

		if err := r.store.InsertValue(ctx, time.Now().Unix(), typeID, value); err != nil {
			r.logger.Error("failed to store sensor sample",
				"value_type_id", typeID, "error", err)
			continue
		}
		r.logger.Debug("sensor sample stored",
			"value_type_id", typeID, "value", value)
	}
	return scanner.Err()
}

// parseLine decodes a "<value_type_id> <value>" sample line.
func parseLine(line string) (int, float64, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected \"<type_id> <value>\", got %q", line)
	}

	typeID, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid type id %q: %w", fields[0], err)
	}

	value, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q: %w", fields[1], err)
	}

	return typeID, value, nil
}

// setFile records the open device handle for Stop to close.
func (r *Reader) setFile(f *os.File) {
	r.mu.Lock()
	r.file = f
	r.mu.Unlock()
}

// sleep waits for the duration unless shutdown is signalled first.
// Returns false when the reader should exit.
func (r *Reader) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-r.done:
		return false
	case <-time.After(d):
		return true
	}
}

// stopped reports whether shutdown has been signalled.
func (r *Reader) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-r.done:
		return true
	default:
		return false
	}
}
