package ledger

import (
	"context"
	"encoding/json"

	"github.com/pitabwire/util"

	"github.com/voicetyped/flightbot/pkg/events"
)

// Subscriber implements queue.SubscribeWorker to record finished bookings.
type Subscriber struct {
	Repo *Repository
}

// Handle is called by frame's pub/sub for each event message. Events other
// than confirmations and rejections are acknowledged and skipped.
func (s *Subscriber) Handle(ctx context.Context, _ map[string]string, message []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		util.Log(ctx).WithError(err).Error("ledger subscriber: unmarshal envelope")
		return err
	}

	var outcome string
	switch env.Type {
	case events.BookingConfirmed:
		outcome = OutcomeConfirmed
	case events.BookingRejected:
		outcome = OutcomeRejected
	default:
		return nil
	}

	var data events.BookingOutcomeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		util.Log(ctx).WithError(err).Error("ledger subscriber: unmarshal outcome")
		return err
	}

	b := &Booking{
		EventID:   env.ID,
		SessionID: env.SessionID,
		Source:    env.Source,
		Outcome:   outcome,
		Turns:     data.Turns,
	}
	b.SetDetails(data.Details)

	if err := s.Repo.Record(ctx, b); err != nil {
		util.Log(ctx).WithError(err).Error("ledger subscriber: record booking")
		return err
	}
	return nil
}
