package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Serial-Intelligence/pkg/errors"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

// SourceService is stamped on every envelope this service emits.
const SourceService = "serial-intelligence"

const (
	TopicSerialExtracted = "serial.extracted"
	TopicSerialGenerated = "serial.generated"
	TopicPatternChanged  = "serial.pattern.changed"
	TopicExportRequested = "serial.export.requested"
	TopicDeadLetter      = "serial.dlq"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventSerialsExtracted = "SerialsExtracted"
	EventSerialsGenerated = "SerialsGenerated"
	EventPatternChanged   = "PatternChanged"
	EventExportRequested  = "ExportRequested"
)

// Pattern change actions.
const (
	PatternCreated     = "created"
	PatternUpdated     = "updated"
	PatternDeleted     = "deleted"
	PatternActivated   = "activated"
	PatternDeactivated = "deactivated"
	PatternsImported   = "imported"
)

// Message headers mirrored from the envelope so consumers can route
// without decoding the body.
const (
	HeaderEventType     = "event_type"
	HeaderSource        = "source_service"
	HeaderSchemaVersion = "schema_version"
	HeaderTraceID       = "trace_id"
)

const schemaV1 = "v1"

type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// SerialsExtractedPayload summarizes one extraction. The serial values
// themselves are left out; a consumer that needs them requests an export.
type SerialsExtractedPayload struct {
	ProductID           *int64    `json:"product_id,omitempty"`
	TotalExtracted      int       `json:"total_extracted"`
	HighConfidenceCount int       `json:"high_confidence_count"`
	PatternMatchedCount int       `json:"pattern_matched_count"`
	AverageConfidence   float64   `json:"average_confidence"`
	FailureCount        int       `json:"failure_count"`
	ExtractedAt         time.Time `json:"extracted_at"`
}

type SerialsGeneratedPayload struct {
	PatternID   int64     `json:"pattern_id"`
	Start       int64     `json:"start"`
	End         int64     `json:"end"`
	Step        int64     `json:"step"`
	Count       int       `json:"count"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PatternChangedPayload.PatternID is zero for bulk actions such as imports.
type PatternChangedPayload struct {
	PatternID int64     `json:"pattern_id,omitempty"`
	ProductID *int64    `json:"product_id,omitempty"`
	Action    string    `json:"action"`
	ChangedAt time.Time `json:"changed_at"`
}

// ExportRequestedPayload names a pending export job whose rows are staged
// in Redis under the job id.
type ExportRequestedPayload struct {
	JobID       string    `json:"job_id"`
	Format      string    `json:"format"`
	RowCount    int       `json:"row_count"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewEventEnvelope wraps payload in a fresh envelope with a random id.
func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	env := &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaV1,
		Payload:       body,
	}
	return env, nil
}

// DecodePayload fills target from the payload. A missing or null payload
// leaves target as it was.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	switch string(e.Payload) {
	case "", "null":
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

func (e *EventEnvelope) headers() map[string]string {
	h := map[string]string{
		HeaderEventType:     e.EventType,
		HeaderSource:        e.Source,
		HeaderSchemaVersion: e.SchemaVersion,
	}
	if e.TraceID != "" {
		h[HeaderTraceID] = e.TraceID
	}
	return h
}

// ToMessage serializes the envelope for topic.
func (e *EventEnvelope) ToMessage(topic string) (*common.ProducerMessage, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return &common.ProducerMessage{
		Topic:     topic,
		Value:     body,
		Headers:   e.headers(),
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope decodes a consumed message. A body without an
// event type is rejected so handlers never dispatch on an empty string.
func MessageToEventEnvelope(msg *common.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	if env.EventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "envelope has no event type").
			WithDetail("topic=" + msg.Topic)
	}
	return &env, nil
}

//Personal.AI order the ending
