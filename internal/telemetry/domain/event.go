package domain

import "time"

// Event types published on the call event stream.
const (
	EventCallSubmitted = "call_submitted"
	EventCallResolved  = "call_resolved"
)

// Event is one call lifecycle notification. It is the JSON value written to Kafka and
// the source of the OTel log record attributes.
type Event struct {
	Type       string    `json:"type"`
	CallID     int64     `json:"call_id"`
	TableID    string    `json:"table_id,omitempty"`
	CallType   string    `json:"call_type,omitempty"`
	Message    string    `json:"message,omitempty"`
	Status     string    `json:"status,omitempty"`
	Source     string    `json:"source,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
