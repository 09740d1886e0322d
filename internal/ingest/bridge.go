// Package ingest subscribes to measurement topics on the MQTT broker
// and persists published samples.
//
// Sensors publish JSON samples to rdp/value/<type_id>:
//
//	{"time": 1696000000, "value": 21.5}
//
// The topic's last level carries the value type id; a missing time is
// stamped on arrival. Delivery is at-most-once from the service's
// perspective: malformed topics and payloads are logged and dropped,
// the broker is not used as a durability layer.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MaNameJonas/rdp-api/internal/infrastructure/logging"
	"github.com/MaNameJonas/rdp-api/internal/infrastructure/mqtt"
)

// defaultInsertTimeout bounds a single store write so a stalled
// database cannot back up the broker client's handler goroutines.
const defaultInsertTimeout = 5 * time.Second

// Store persists decoded samples.
type Store interface {
	InsertValue(ctx context.Context, t int64, valueTypeID int, v float64) error
}

// Subscriber is the broker surface the bridge consumes.
type Subscriber interface {
	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// Topics returns the topic builder for the configured prefix.
	Topics() mqtt.Topics
}

// Options holds the dependencies and settings for a Bridge.
type Options struct {
	// MQTT is the connected broker client. Required.
	MQTT Subscriber

	// Store receives decoded samples. Required.
	Store Store

	// Logger is the structured logger. Required.
	Logger *logging.Logger

	// QoS is the subscription QoS level.
	QoS byte

	// InsertTimeout bounds a single store write.
	// Zero means the default of 5 seconds.
	InsertTimeout time.Duration
}

// Bridge routes value messages from the broker into the store.
// Create with New, begin with Start, end with Stop.
type Bridge struct {
	mqtt    Subscriber
	store   Store
	logger  *logging.Logger
	topics  mqtt.Topics
	qos     byte
	timeout time.Duration

	// Bridge-level context bounds in-flight inserts on shutdown.
	ctx       context.Context
	ctxCancel context.CancelFunc
	stopOnce  sync.Once
}

// New creates an ingest bridge.
func New(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	timeout := opts.InsertTimeout
	if timeout == 0 {
		timeout = defaultInsertTimeout
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Bridge{
		mqtt:      opts.MQTT,
		store:     opts.Store,
		logger:    opts.Logger,
		topics:    opts.MQTT.Topics(),
		qos:       opts.QoS,
		timeout:   timeout,
		ctx:       ctx,
		ctxCancel: ctxCancel,
	}, nil
}

// Start subscribes to the value topic wildcard.
//
// The underlying client restores the subscription after reconnects, so
// Start is called once.
func (b *Bridge) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("ingest start: %w", ctx.Err())
	default:
	}

	topic := b.topics.AllValues()
	if err := b.mqtt.Subscribe(topic, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("subscribe to values: %w", err)
	}

	b.logger.Info("ingest bridge started", "topic", topic, "qos", b.qos)
	return nil
}

// Stop aborts in-flight inserts. Safe to call multiple times.
//
// The MQTT subscription itself ends with the client connection; the
// bridge only has to stop feeding the store.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.logger.Info("ingest bridge stopped")
	})
}

// valueMessage is the payload published to rdp/value/<type_id>.
// Time is optional; Value is required.
type valueMessage struct {
	Time  *int64   `json:"time"`
	Value *float64 `json:"value"`
}

// handleMessage decodes one published sample and stores it.
//
// Malformed messages are dropped after a warning: a retry could never
// succeed and the publisher is not waiting for an answer.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	typeID, err := b.topics.ParseValue(topic)
	if err != nil {
		b.logger.Warn("dropping message with malformed topic",
			"topic", topic, "error", err)
		return nil
	}

	var msg valueMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logger.Warn("dropping malformed value payload",
			"topic", topic, "error", err)
		return nil
	}
	if msg.Value == nil {
		b.logger.Warn("dropping value payload without a value field", "topic", topic)
		return nil
	}

	t := time.Now().Unix()
	if msg.Time != nil {
		t = *msg.Time
	}

	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()

	if err := b.store.InsertValue(ctx, t, typeID, *msg.Value); err != nil {
		return fmt.Errorf("storing sample for type %d: %w", typeID, err)
	}

	b.logger.Debug("published sample stored",
		"value_type_id", typeID, "value", *msg.Value)
	return nil
}
