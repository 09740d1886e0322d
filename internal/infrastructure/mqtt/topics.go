package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopicPrefix is used when config leaves topic_prefix empty.
const DefaultTopicPrefix = "rdp"

// Topics builds RDP topic names under a common prefix. Using these
// helpers keeps topic naming consistent between the ingest bridge,
// external publishers and the status LWT.
//
//	topics := mqtt.NewTopics("rdp")
//	topics.Value(12)   // "rdp/value/12"
//	topics.AllValues() // "rdp/value/+"
//	topics.Status()    // "rdp/status"
type Topics struct {
	prefix string
}

// NewTopics creates a topic builder for the given prefix. An empty
// prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Value returns the ingest topic for a single value type.
//
// Example: rdp/value/12
func (t Topics) Value(typeID int) string {
	return fmt.Sprintf("%s/value/%d", t.prefix, typeID)
}

// AllValues returns the wildcard pattern matching every value topic.
//
// Pattern: rdp/value/+
func (t Topics) AllValues() string {
	return fmt.Sprintf("%s/value/+", t.prefix)
}

// ParseValue extracts the value type id from an ingest topic.
//
// Returns ErrInvalidTopic when the topic does not follow the value
// scheme or its last level is not numeric.
func (t Topics) ParseValue(topic string) (int, error) {
	rest, ok := strings.CutPrefix(topic, t.prefix+"/value/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return 0, fmt.Errorf("%w: %q is not a value topic", ErrInvalidTopic, topic)
	}
	id, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: value type id %q is not numeric", ErrInvalidTopic, rest)
	}
	return id, nil
}

// Status returns the service status topic used for the LWT and the
// online/offline announcements.
//
// Example: rdp/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}
