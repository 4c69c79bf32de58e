package telemetry

import (
	"context"
	"log/slog"

	"github.com/voicetyped/flightbot/pkg/booking"
)

// Outcome messages, kept stable so dashboards can filter on them.
const (
	MsgCompleted = "Flight booked, customer satisfied"
	MsgRejected  = "Customer is not satisfied with the bot's proposition"
)

// DimensionsKey groups the booking fields attached to rejection records.
const DimensionsKey = "custom_dimensions"

// Reporter writes one record per finished booking to the telemetry logger.
type Reporter struct {
	logger *slog.Logger
}

// NewReporter creates a reporter. A nil logger drops every record.
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{logger: logger}
}

// Completed records an accepted booking at info level.
func (r *Reporter) Completed(ctx context.Context, _ booking.Details) {
	if r == nil {
		return
	}
	r.logger.InfoContext(ctx, MsgCompleted, slog.String("outcome", "success"))
}

// Rejected records a turned-down booking at error level with the full record attached.
func (r *Reporter) Rejected(ctx context.Context, d booking.Details) {
	if r == nil {
		return
	}
	dims := make([]any, 0, len(booking.Fields))
	for _, f := range booking.Fields {
		dims = append(dims, slog.String(string(f), d.Get(f)))
	}
	r.logger.ErrorContext(ctx, MsgRejected,
		slog.String("outcome", "failure"),
		slog.Group(DimensionsKey, dims...),
	)
}
