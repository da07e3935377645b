// Package eventbus owns per-stream consumer groups and per-consumer reader
// loops over a Redis-Streams backend: it validates envelopes against the
// schema registry, dispatches them to registered handlers, applies retry
// policy, and routes poison or retry-exhausted messages to a dead-letter
// sibling stream.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the self-contained record every event travels through the
// system as. id is a producer-assigned UUID unique over all time; (type,
// version) selects exactly one accepted data schema.
type Envelope struct {
	ID            string            `json:"id"`
	Stream        string            `json:"stream"`
	Type          string            `json:"type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Data          json.RawMessage   `json:"data,omitempty"`
}

// NewEnvelope builds an envelope with a fresh id and the producer wall clock,
// defaulting version to 1 as the registry contract requires.
func NewEnvelope(stream, eventType string, version int, data any) (Envelope, error) {
	if version <= 0 {
		version = 1
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal envelope data: %w", err)
	}
	return Envelope{
		ID:        uuid.NewString(),
		Stream:    stream,
		Type:      eventType,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// wire field names for the flat string map stored in each stream entry.
const (
	fieldID            = "id"
	fieldStream        = "stream"
	fieldType          = "type"
	fieldVersion       = "version"
	fieldTimestamp     = "timestamp"
	fieldCorrelationID = "correlation_id"
	fieldUserID        = "user_id"
	fieldMetadata      = "metadata"
	fieldData          = "data"
)

// Encode renders the envelope as the flat string map the stream backend
// accepts for XADD: data and metadata are carried as canonical-JSON strings.
func Encode(e Envelope) (map[string]interface{}, error) {
	values := map[string]interface{}{
		fieldID:        e.ID,
		fieldStream:    e.Stream,
		fieldType:      e.Type,
		fieldVersion:   e.Version,
		fieldTimestamp: e.Timestamp.Format(time.RFC3339Nano),
	}
	if e.CorrelationID != "" {
		values[fieldCorrelationID] = e.CorrelationID
	}
	if e.UserID != "" {
		values[fieldUserID] = e.UserID
	}
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		values[fieldMetadata] = string(b)
	}
	if len(e.Data) > 0 {
		values[fieldData] = string(e.Data)
	}
	return values, nil
}

// Decode parses the flat string map read back from the stream into an Envelope.
func Decode(values map[string]string) (Envelope, error) {
	version := 1
	if v, ok := values[fieldVersion]; ok && v != "" {
		if _, err := fmt.Sscanf(v, "%d", &version); err != nil {
			return Envelope{}, fmt.Errorf("decode version: %w", err)
		}
	}

	var ts time.Time
	if v, ok := values[fieldTimestamp]; ok && v != "" {
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return Envelope{}, fmt.Errorf("decode timestamp: %w", err)
		}
		ts = parsed
	}

	e := Envelope{
		ID:            values[fieldID],
		Stream:        values[fieldStream],
		Type:          values[fieldType],
		Version:       version,
		Timestamp:     ts,
		CorrelationID: values[fieldCorrelationID],
		UserID:        values[fieldUserID],
	}

	if raw, ok := values[fieldMetadata]; ok && raw != "" {
		var md map[string]string
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			return Envelope{}, fmt.Errorf("decode metadata: %w", err)
		}
		e.Metadata = md
	}
	if raw, ok := values[fieldData]; ok && raw != "" {
		e.Data = json.RawMessage(raw)
	}

	if e.ID == "" || e.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing required field id/type")
	}
	return e, nil
}

// WithMetadata returns a copy of e with key=value merged into its metadata,
// used by the dead-letter path to attach original_group/original_consumer/etc.
func (e Envelope) WithMetadata(extra map[string]string) Envelope {
	md := make(map[string]string, len(e.Metadata)+len(extra))
	for k, v := range e.Metadata {
		md[k] = v
	}
	for k, v := range extra {
		md[k] = v
	}
	e.Metadata = md
	return e
}
