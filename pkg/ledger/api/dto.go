package api

import "github.com/voicetyped/flightbot/pkg/booking"

// BookingResponse is the API response for a ledger entry.
type BookingResponse struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Source    string          `json:"source,omitempty"`
	Outcome   string          `json:"outcome"`
	Details   booking.Details `json:"details"`
	Turns     int             `json:"turns"`
	CreatedAt string          `json:"created_at"`
}

// ListResponse wraps a page of ledger entries.
type ListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
