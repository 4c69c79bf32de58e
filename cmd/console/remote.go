package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"reflect"
	"time"

	"connectrpc.com/connect"

	"github.com/voicetyped/flightbot/internal/booking/bookingv1"
	"github.com/voicetyped/flightbot/internal/workflow"
	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/dialog"
)

// remote is a flow hosted somewhere else.
type remote interface {
	Start(ctx context.Context, details booking.Details) (dialog.Turn, error)
	Reply(ctx context.Context, text string) (dialog.Turn, error)
}

// converse relays turns and replies between a remote flow and a terminal until
// the flow ends or input runs out.
func converse(ctx context.Context, r remote, details booking.Details, in io.Reader, out io.Writer) (dialog.Turn, error) {
	say := sayTo(out)
	turn, err := r.Start(ctx, details)
	if err != nil {
		return dialog.Turn{}, err
	}

	sc := bufio.NewScanner(in)
	for {
		if err := dialog.Deliver(turn, say); err != nil {
			return turn, err
		}
		if turn.Done {
			return turn, nil
		}
		if !sc.Scan() {
			return turn, sc.Err()
		}
		if turn, err = r.Reply(ctx, sc.Text()); err != nil {
			return turn, err
		}
	}
}

type rpcRemote struct {
	client    bookingv1.BookingServiceClient
	sessionID string
}

func (r *rpcRemote) Start(ctx context.Context, details booking.Details) (dialog.Turn, error) {
	resp, err := r.client.StartBooking(ctx, connect.NewRequest(&bookingv1.StartBookingRequest{Details: details}))
	if err != nil {
		return dialog.Turn{}, err
	}
	r.sessionID = resp.Msg.SessionID
	return resp.Msg.Turn, nil
}

func (r *rpcRemote) Reply(ctx context.Context, text string) (dialog.Turn, error) {
	resp, err := r.client.SendReply(ctx, connect.NewRequest(&bookingv1.SendReplyRequest{
		SessionID: r.sessionID,
		Text:      text,
	}))
	if err != nil {
		return dialog.Turn{}, err
	}
	return resp.Msg.Turn, nil
}

// workflowRemote drives a booking workflow. Signals are asynchronous, so each
// reply is followed by polling the current turn until it moves.
type workflowRemote struct {
	client    *workflow.Client
	sessionID string
	last      dialog.Turn

	pollEvery time.Duration
	pollFor   time.Duration
}

func (r *workflowRemote) Start(ctx context.Context, details booking.Details) (dialog.Turn, error) {
	if err := r.client.Start(ctx, r.sessionID, details); err != nil {
		return dialog.Turn{}, err
	}
	return r.await(ctx, nil)
}

func (r *workflowRemote) Reply(ctx context.Context, text string) (dialog.Turn, error) {
	if err := r.client.Reply(ctx, r.sessionID, text); err != nil {
		return dialog.Turn{}, err
	}
	prev := r.last
	return r.await(ctx, &prev)
}

func (r *workflowRemote) await(ctx context.Context, prev *dialog.Turn) (dialog.Turn, error) {
	every, limit := r.pollEvery, r.pollFor
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	if limit <= 0 {
		limit = 5 * time.Second
	}
	deadline := time.Now().Add(limit)

	for {
		turn, err := r.client.CurrentTurn(ctx, r.sessionID)
		if err == nil && (prev == nil || turn.Done || !reflect.DeepEqual(turn, *prev) || time.Now().After(deadline)) {
			r.last = turn
			return turn, nil
		}
		if err != nil && time.Now().After(deadline) {
			return dialog.Turn{}, err
		}

		select {
		case <-ctx.Done():
			return dialog.Turn{}, errors.Join(ctx.Err(), err)
		case <-time.After(every):
		}
	}
}
