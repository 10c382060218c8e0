package domain

import (
	"errors"
	"strings"
	"time"
)

// CallEvent is one staff-notification record raised by a customer action.
type CallEvent struct {
	ID          int64
	TableID     string
	CallType    string
	Message     string // optional; empty when not set
	Status      CallStatus
	CreatedAt   time.Time
	RespondedAt *time.Time // nil until Status is CallStatusResponded
}

type CallStatus string

const (
	CallStatusPending   CallStatus = "pending"
	CallStatusResponded CallStatus = "responded"
)

// Well-known call types behind the quick-call buttons. The set is open: any other
// non-empty tag is accepted and stored verbatim.
const (
	CallTypeCall    = "call"
	CallTypeBill    = "bill"
	CallTypeToilet  = "toilet"
	CallTypeWater   = "water"
	CallTypeMenu    = "menu"
	CallTypeProblem = "problem"
)

var (
	ErrTableIDRequired  = errors.New("table_id is required")
	ErrCallTypeRequired = errors.New("call_type is required")
)

// Validate checks the fields a customer must supply. Returns an error describing the first validation failure.
func (c *CallEvent) Validate() error {
	if strings.TrimSpace(c.TableID) == "" {
		return ErrTableIDRequired
	}
	if strings.TrimSpace(c.CallType) == "" {
		return ErrCallTypeRequired
	}
	return nil
}

// IsPending reports whether staff have not yet responded.
func (c *CallEvent) IsPending() bool {
	return c.Status == CallStatusPending
}

// Icon returns the dashboard glyph for the call type; unknown types get a bell.
func Icon(callType string) string {
	switch callType {
	case CallTypeCall:
		return "🙋"
	case CallTypeBill:
		return "💰"
	case CallTypeToilet:
		return "🚻"
	case CallTypeWater:
		return "💧"
	case CallTypeMenu:
		return "📋"
	case CallTypeProblem:
		return "⚠️"
	default:
		return "🔔"
	}
}
