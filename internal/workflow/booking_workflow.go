package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/voicetyped/flightbot/pkg/dialog"
	"github.com/voicetyped/flightbot/pkg/timex"
)

// BookingWorkflow runs one booking flow to completion. The waterfall is
// deterministic as long as relative dates are resolved against workflow time.
func BookingWorkflow(ctx workflow.Context, in BookingInput) (BookingResult, error) {
	logger := workflow.GetLogger(ctx)

	catalog := dialog.DefaultCatalog()
	if in.Catalog != nil {
		catalog = in.Catalog.WithDefaults()
		if err := catalog.Validate(); err != nil {
			return BookingResult{}, temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("invalid catalog: %v", err), "InvalidCatalog", err)
		}
	}

	recognizer := &timex.Recognizer{
		Now:      func() time.Time { return workflow.Now(ctx) },
		Location: time.UTC,
	}
	waterfall := dialog.NewWaterfall(dialog.StaticCatalog(catalog), recognizer)

	state, current := waterfall.Begin(in.Details)

	if err := workflow.SetQueryHandler(ctx, QueryCurrentTurn, func() (dialog.Turn, error) {
		return current, nil
	}); err != nil {
		return BookingResult{}, err
	}

	replyCh := workflow.GetSignalChannel(ctx, SignalUserReply)
	cancelCh := workflow.GetSignalChannel(ctx, SignalCancelBooking)

	for !current.Done {
		timerCtx, cancelTimer := workflow.WithCancel(ctx)
		sel := workflow.NewSelector(ctx)

		sel.AddReceive(replyCh, func(c workflow.ReceiveChannel, more bool) {
			var sig ReplySignal
			c.Receive(ctx, &sig)
			turn, err := waterfall.Resume(state, sig.Text)
			if err != nil {
				logger.Warn("Reply rejected", "error", err)
				return
			}
			current = turn
		})

		sel.AddReceive(cancelCh, func(c workflow.ReceiveChannel, more bool) {
			var sig CancelSignal
			c.Receive(ctx, &sig)
			if turn, err := waterfall.Abort(state); err == nil {
				logger.Info("Booking cancelled", "reason", sig.Reason)
				current = turn
			}
		})

		if in.IdleTimeout > 0 {
			sel.AddFuture(workflow.NewTimer(timerCtx, in.IdleTimeout), func(f workflow.Future) {
				if f.Get(timerCtx, nil) != nil {
					return
				}
				if turn, err := waterfall.Abort(state); err == nil {
					logger.Info("Booking idle timeout", "step", string(state.Step()))
					current = turn
				}
			})
		}

		sel.Select(ctx)
		cancelTimer()
	}

	result := BookingResult{
		SessionID: in.SessionID,
		Outcome:   current.Outcome,
		Details:   current.Details,
		Confirmed: current.Result,
		Turns:     state.Turns,
	}

	if current.Outcome == dialog.OutcomeConfirmed || current.Outcome == dialog.OutcomeRejected {
		actx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: 30 * time.Second,
			// One attempt keeps the telemetry record single.
			RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
		})
		err := workflow.ExecuteActivity(actx, ActivityReportOutcome, ReportInput{
			SessionID: in.SessionID,
			Outcome:   current.Outcome,
			Details:   current.Details,
			Turns:     state.Turns,
		}).Get(ctx, nil)
		if err != nil {
			logger.Error("Failed to report booking outcome", "error", err)
		}
	}

	return result, nil
}
