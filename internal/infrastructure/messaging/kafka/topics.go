package kafka

import (
	"encoding/json"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/domain/events"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// SchemaVersion is stamped on every envelope.
const SchemaVersion = "1.0"

// Source identifies this service in envelopes.
const Source = "predictpesa-api"

// Envelope is the wire format of a published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps e for the wire.
func NewEnvelope(e events.Event) (*Envelope, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event payload")
	}
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &Envelope{
		EventID:       e.ID,
		EventType:     e.Topic,
		Source:        Source,
		Timestamp:     ts,
		SchemaVersion: SchemaVersion,
		Payload:       payload,
	}, nil
}

// DecodePayload unmarshals the envelope payload into dest.
func (e *Envelope) DecodePayload(dest any) error {
	if err := json.Unmarshal(e.Payload, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}
