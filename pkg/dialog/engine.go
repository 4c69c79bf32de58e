package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/events"
	"github.com/voicetyped/flightbot/pkg/telemetry"
)

// ErrSessionStarted is returned when Start is called on a session that
// already carries a flow.
var ErrSessionStarted = errors.New("dialog: session already started")

// ErrSessionNotStarted is returned when a reply arrives before Start.
var ErrSessionNotStarted = errors.New("dialog: session not started")

// SayFunc delivers one message to the user.
type SayFunc func(text string) error

// Observer receives flow lifecycle callbacks, typically for metrics.
type Observer interface {
	FlowStarted(host string)
	Prompted(step StepName)
	FlowFinished(host string, outcome Outcome, turns int)
}

// Engine hosts booking flows: it drives the waterfall for a session and does
// the per-turn bookkeeping (history, events, telemetry, observer callbacks).
type Engine struct {
	waterfall *Waterfall
	reporter  *telemetry.Reporter
	publisher *events.Publisher
	observer  Observer
	host      string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithObserver attaches lifecycle callbacks.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithHost names the host in events and metrics. Defaults to "engine".
func WithHost(name string) EngineOption {
	return func(e *Engine) { e.host = name }
}

// NewEngine creates a new booking engine. reporter and pub may be nil.
func NewEngine(w *Waterfall, reporter *telemetry.Reporter, pub *events.Publisher, opts ...EngineOption) *Engine {
	e := &Engine{
		waterfall: w,
		reporter:  reporter,
		publisher: pub,
		host:      "engine",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Waterfall returns the controller the engine drives.
func (e *Engine) Waterfall() *Waterfall {
	return e.waterfall
}

// CommitFunc makes a turn durable. It runs after the flow state advances and
// before the turn's events, telemetry and observer callbacks. An error
// suppresses them and is returned to the caller.
type CommitFunc func(ctx context.Context, s *Session) error

// Start begins a flow on a fresh session.
func (e *Engine) Start(ctx context.Context, s *Session, details booking.Details) (Turn, error) {
	return e.StartCommit(ctx, s, details, nil)
}

// StartCommit is Start with a commit step. commit may be nil.
func (e *Engine) StartCommit(ctx context.Context, s *Session, details booking.Details, commit CommitFunc) (Turn, error) {
	s.mu.Lock()
	if s.State != nil {
		s.mu.Unlock()
		return Turn{}, ErrSessionStarted
	}
	st, turn := e.waterfall.Begin(details)
	s.State = st
	s.LastActive = time.Now()
	s.recordLocked(StepOrigin, turn.Step, "start")
	s.mu.Unlock()

	if commit != nil {
		if err := commit(ctx, s); err != nil {
			return Turn{}, err
		}
	}

	e.emit(ctx, s.ID, events.BookingStarted, &events.BookingStartedData{
		Details: details,
		Host:    e.host,
	})
	if e.observer != nil {
		e.observer.FlowStarted(e.host)
	}
	e.afterTurn(ctx, s.ID, StepOrigin, turn, st.Turns)
	return turn, nil
}

// Reply feeds one user reply into the session's flow.
func (e *Engine) Reply(ctx context.Context, s *Session, text string) (Turn, error) {
	return e.ReplyCommit(ctx, s, text, nil)
}

// ReplyCommit is Reply with a commit step. A confirmed or rejected outcome is
// reported only once commit succeeds. commit may be nil.
func (e *Engine) ReplyCommit(ctx context.Context, s *Session, text string, commit CommitFunc) (Turn, error) {
	s.mu.Lock()
	if s.State == nil {
		s.mu.Unlock()
		return Turn{}, ErrSessionNotStarted
	}
	from := s.State.Step()
	turn, err := e.waterfall.Resume(s.State, text)
	if err != nil {
		s.mu.Unlock()
		return Turn{}, err
	}
	s.LastActive = time.Now()
	if turn.Step != from {
		s.recordLocked(from, turn.Step, text)
	}
	turns := s.State.Turns
	s.mu.Unlock()

	if commit != nil {
		if err := commit(ctx, s); err != nil {
			return Turn{}, err
		}
	}

	e.afterTurn(ctx, s.ID, from, turn, turns)
	return turn, nil
}

// Cancel aborts the session's flow between two steps. No telemetry record is
// written for aborted flows.
func (e *Engine) Cancel(ctx context.Context, s *Session) (Turn, error) {
	return e.CancelCommit(ctx, s, nil)
}

// CancelCommit is Cancel with a commit step. commit may be nil.
func (e *Engine) CancelCommit(ctx context.Context, s *Session, commit CommitFunc) (Turn, error) {
	s.mu.Lock()
	if s.State == nil {
		s.mu.Unlock()
		return Turn{}, ErrSessionNotStarted
	}
	from := s.State.Step()
	turn, err := e.waterfall.Abort(s.State)
	if err != nil {
		s.mu.Unlock()
		return Turn{}, err
	}
	s.LastActive = time.Now()
	turns := s.State.Turns
	s.mu.Unlock()

	if commit != nil {
		if err := commit(ctx, s); err != nil {
			return Turn{}, err
		}
	}

	e.afterTurn(ctx, s.ID, from, turn, turns)
	return turn, nil
}

// Pending returns the prompt the session is waiting on, or nil.
func (e *Engine) Pending(s *Session) *Prompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.State == nil {
		return nil
	}
	return e.waterfall.Prompt(s.State)
}

// RunDialog is the event loop for a single conversation. It starts the flow
// with details, or resumes a restored session by repeating its pending prompt,
// then feeds replies until the flow ends. The confirmed record is returned;
// rejected and cancelled flows return nil.
func (e *Engine) RunDialog(ctx context.Context, s *Session, details booking.Details, replies <-chan string, say SayFunc) (*booking.Details, error) {
	var turn Turn
	if s.State == nil {
		var err error
		turn, err = e.Start(ctx, s, details)
		if err != nil {
			return nil, err
		}
	} else {
		if s.Done() {
			return nil, ErrFlowFinished
		}
		turn = Turn{Step: s.CurrentStep(), Prompt: e.Pending(s)}
	}

	for {
		if err := Deliver(turn, say); err != nil {
			return nil, fmt.Errorf("deliver %s turn: %w", turn.Step, err)
		}
		if turn.Done {
			return turn.Result, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case text, ok := <-replies:
			if !ok {
				return nil, nil
			}
			var err error
			turn, err = e.Reply(ctx, s, text)
			if err != nil {
				return nil, err
			}
		}
	}
}

func (e *Engine) afterTurn(ctx context.Context, sessionID string, from StepName, turn Turn, turns int) {
	if turn.Step != from {
		e.emit(ctx, sessionID, events.StepTransition, &events.StepTransitionData{
			FromStep: string(from),
			ToStep:   string(turn.Step),
		})
	}

	if turn.Prompt != nil {
		e.emit(ctx, sessionID, events.BookingPrompted, &events.BookingPromptedData{
			Step:    string(turn.Step),
			Kind:    string(turn.Prompt.Kind),
			Text:    turn.Prompt.Text,
			Choices: turn.Prompt.Choices,
		})
		if e.observer != nil {
			e.observer.Prompted(turn.Step)
		}
	}

	if !turn.Done {
		return
	}

	outcome := &events.BookingOutcomeData{
		Outcome: string(turn.Outcome),
		Details: turn.Details,
		Turns:   turns,
	}
	switch turn.Outcome {
	case OutcomeConfirmed:
		e.reporter.Completed(ctx, turn.Details)
		e.emit(ctx, sessionID, events.BookingConfirmed, outcome)
	case OutcomeRejected:
		e.reporter.Rejected(ctx, turn.Details)
		e.emit(ctx, sessionID, events.BookingRejected, outcome)
	case OutcomeCancelled:
		e.emit(ctx, sessionID, events.BookingCancelled, outcome)
	}
	if e.observer != nil {
		e.observer.FlowFinished(e.host, turn.Outcome, turns)
	}
}

func (e *Engine) emit(ctx context.Context, sessionID string, eventType events.EventType, data any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, eventType, sessionID, data); err != nil {
		slog.Warn("event publish failed",
			slog.String("session_id", sessionID),
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
	}
}

// Deliver speaks a turn's messages followed by its prompt, if any.
func Deliver(turn Turn, say SayFunc) error {
	if say == nil {
		return nil
	}
	for _, msg := range turn.Messages {
		if err := say(msg); err != nil {
			return err
		}
	}
	if turn.Prompt != nil {
		return say(FormatPrompt(turn.Prompt))
	}
	return nil
}

// FormatPrompt renders a prompt as plain text, listing numbered choices
// for confirmation prompts.
func FormatPrompt(p *Prompt) string {
	if len(p.Choices) == 0 {
		return p.Text
	}
	var b strings.Builder
	b.WriteString(p.Text)
	b.WriteString("\n")
	for i, c := range p.Choices {
		b.WriteString("\n  ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(c)
	}
	return b.String()
}
