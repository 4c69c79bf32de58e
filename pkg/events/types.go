package events

import (
	"encoding/json"
	"time"

	"github.com/voicetyped/flightbot/pkg/booking"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	BookingStarted   EventType = "booking.started"
	BookingPrompted  EventType = "booking.prompted"
	StepTransition   EventType = "booking.step"
	BookingConfirmed EventType = "booking.confirmed"
	BookingRejected  EventType = "booking.rejected"
	BookingCancelled EventType = "booking.cancelled"
	SystemError      EventType = "error"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// BookingStartedData is the payload for booking.started events.
type BookingStartedData struct {
	Details booking.Details `json:"details"`
	Host    string          `json:"host"` // "engine", "rpc" or "temporal"
}

// BookingPromptedData is the payload for booking.prompted events.
type BookingPromptedData struct {
	Step    string   `json:"step"`
	Kind    string   `json:"kind"`
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
}

// StepTransitionData is the payload for booking.step events.
type StepTransitionData struct {
	FromStep string `json:"from_step"`
	ToStep   string `json:"to_step"`
}

// BookingOutcomeData is the payload for booking.confirmed, booking.rejected
// and booking.cancelled events.
type BookingOutcomeData struct {
	Outcome string          `json:"outcome"`
	Details booking.Details `json:"details"`
	Turns   int             `json:"turns"`
}

// ErrorData is the payload for error events.
type ErrorData struct {
	Error string `json:"error"`
}
