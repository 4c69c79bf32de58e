package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/dialog"
)

// Dial connects to a Temporal frontend, logging through slog.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	return c, nil
}

// Register adds the booking workflow and its activities to a worker.
func Register(w worker.Registry, acts *Activities) {
	w.RegisterWorkflowWithOptions(BookingWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(acts.ReportOutcome, activity.RegisterOptions{Name: ActivityReportOutcome})
}

// Client drives booking workflows keyed by session id.
type Client struct {
	temporal    client.Client
	taskQueue   string
	idleTimeout time.Duration
}

// NewClient wraps a Temporal client. An empty task queue uses DefaultTaskQueue.
func NewClient(c client.Client, taskQueue string, idleTimeout time.Duration) *Client {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Client{temporal: c, taskQueue: taskQueue, idleTimeout: idleTimeout}
}

// WorkflowID derives the workflow id of a session.
func WorkflowID(sessionID string) string {
	return "booking-" + sessionID
}

// Start launches the booking workflow for a session.
func (c *Client) Start(ctx context.Context, sessionID string, details booking.Details) error {
	_, err := c.temporal.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(sessionID),
		TaskQueue: c.taskQueue,
	}, WorkflowName, BookingInput{
		SessionID:   sessionID,
		Details:     details,
		IdleTimeout: c.idleTimeout,
	})
	if err != nil {
		return fmt.Errorf("start booking workflow: %w", err)
	}
	return nil
}

// Reply signals one user reply to the session's workflow.
func (c *Client) Reply(ctx context.Context, sessionID, text string) error {
	return c.temporal.SignalWorkflow(ctx, WorkflowID(sessionID), "", SignalUserReply, ReplySignal{Text: text})
}

// Cancel aborts the session's flow.
func (c *Client) Cancel(ctx context.Context, sessionID, reason string) error {
	return c.temporal.SignalWorkflow(ctx, WorkflowID(sessionID), "", SignalCancelBooking, CancelSignal{Reason: reason})
}

// CurrentTurn returns the turn the workflow is waiting on.
func (c *Client) CurrentTurn(ctx context.Context, sessionID string) (dialog.Turn, error) {
	val, err := c.temporal.QueryWorkflow(ctx, WorkflowID(sessionID), "", QueryCurrentTurn)
	if err != nil {
		return dialog.Turn{}, fmt.Errorf("query current turn: %w", err)
	}
	var turn dialog.Turn
	if err := val.Get(&turn); err != nil {
		return dialog.Turn{}, fmt.Errorf("decode current turn: %w", err)
	}
	return turn, nil
}

// Result blocks until the session's workflow completes.
func (c *Client) Result(ctx context.Context, sessionID string) (BookingResult, error) {
	var res BookingResult
	if err := c.temporal.GetWorkflow(ctx, WorkflowID(sessionID), "").Get(ctx, &res); err != nil {
		return BookingResult{}, err
	}
	return res, nil
}
