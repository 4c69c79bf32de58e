// Package workflow hosts booking flows as durable Temporal workflows. Each
// reply arrives as a signal and the pending turn is exposed through a query.
package workflow

import (
	"time"

	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/dialog"
)

// Registered names.
const (
	WorkflowName          = "BookingWorkflow"
	ActivityReportOutcome = "ReportOutcome"

	SignalUserReply     = "user_reply"
	SignalCancelBooking = "cancel_booking"
	QueryCurrentTurn    = "current_turn"

	DefaultTaskQueue = "flightbot-booking"
)

// BookingInput starts a booking workflow.
type BookingInput struct {
	SessionID string          `json:"session_id"`
	Details   booking.Details `json:"details"`
	// Catalog overrides the default prompts when set.
	Catalog *dialog.Catalog `json:"catalog,omitempty"`
	// IdleTimeout cancels the flow when no reply arrives in time. Zero waits forever.
	IdleTimeout time.Duration `json:"idle_timeout,omitempty"`
}

// BookingResult is returned when the workflow completes.
type BookingResult struct {
	SessionID string           `json:"session_id"`
	Outcome   dialog.Outcome   `json:"outcome"`
	Details   booking.Details  `json:"details"`
	Confirmed *booking.Details `json:"confirmed,omitempty"`
	Turns     int              `json:"turns"`
}

// ReplySignal carries one user reply.
type ReplySignal struct {
	Text string `json:"text"`
}

// CancelSignal aborts the flow.
type CancelSignal struct {
	Reason string `json:"reason,omitempty"`
}

// ReportInput is the ReportOutcome activity input.
type ReportInput struct {
	SessionID string          `json:"session_id"`
	Outcome   dialog.Outcome  `json:"outcome"`
	Details   booking.Details `json:"details"`
	Turns     int             `json:"turns"`
}
