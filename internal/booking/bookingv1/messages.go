// Package bookingv1 holds the messages and Connect bindings of the
// flightbot.booking.v1.BookingService.
package bookingv1

import (
	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/dialog"
)

type StartBookingRequest struct {
	// SessionID is optional; the server assigns one when empty.
	SessionID string          `json:"session_id,omitempty"`
	Details   booking.Details `json:"details"`
}

type StartBookingResponse struct {
	SessionID string      `json:"session_id"`
	Turn      dialog.Turn `json:"turn"`
}

type SendReplyRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type SendReplyResponse struct {
	SessionID string      `json:"session_id"`
	Turn      dialog.Turn `json:"turn"`
}

type GetBookingRequest struct {
	SessionID string `json:"session_id"`
}

type GetBookingResponse struct {
	SessionID string              `json:"session_id"`
	Step      dialog.StepName     `json:"step"`
	Details   booking.Details     `json:"details"`
	Missing   []booking.Field     `json:"missing,omitempty"`
	Prompt    *dialog.Prompt      `json:"prompt,omitempty"`
	Turns     int                 `json:"turns"`
	History   []dialog.StepRecord `json:"history,omitempty"`
	StartTime string              `json:"start_time"`
}

type CancelBookingRequest struct {
	SessionID string `json:"session_id"`
}

type CancelBookingResponse struct{}
