package workflow

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/voicetyped/flightbot/pkg/dialog"
	"github.com/voicetyped/flightbot/pkg/events"
	"github.com/voicetyped/flightbot/pkg/telemetry"
)

// Activities holds the side effects a booking workflow may trigger.
type Activities struct {
	Reporter  *telemetry.Reporter
	Publisher *events.Publisher
	Observer  dialog.Observer
}

// ReportOutcome writes the telemetry record and publishes the outcome event
// for a confirmed or rejected booking.
func (a *Activities) ReportOutcome(ctx context.Context, in ReportInput) error {
	logger := activity.GetLogger(ctx)

	eventType := events.BookingRejected
	switch in.Outcome {
	case dialog.OutcomeConfirmed:
		a.Reporter.Completed(ctx, in.Details)
		eventType = events.BookingConfirmed
	case dialog.OutcomeRejected:
		a.Reporter.Rejected(ctx, in.Details)
	default:
		logger.Warn("Ignoring outcome without telemetry", "outcome", string(in.Outcome))
		return nil
	}

	if a.Observer != nil {
		a.Observer.FlowFinished("temporal", in.Outcome, in.Turns)
	}

	if a.Publisher != nil {
		if err := a.Publisher.Emit(ctx, eventType, in.SessionID, &events.BookingOutcomeData{
			Outcome: string(in.Outcome),
			Details: in.Details,
			Turns:   in.Turns,
		}); err != nil {
			logger.Warn("Failed to publish booking outcome", "error", err)
		}
	}
	return nil
}
