package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/pitabwire/frame/workerpool"
	"github.com/rs/xid"

	"github.com/voicetyped/flightbot/internal/booking/bookingv1"
	"github.com/voicetyped/flightbot/internal/metrics"
	"github.com/voicetyped/flightbot/internal/store"
	"github.com/voicetyped/flightbot/pkg/dialog"
)

const (
	defaultSessionTTL = 30 * time.Minute
	reaperInterval    = 1 * time.Minute
)

// Ensure we implement the interface.
var _ bookingv1.BookingServiceHandler = (*BookingHandler)(nil)

// BookingHandler implements bookingv1.BookingServiceHandler. Sessions live in
// the store between calls, so any instance sharing the store can serve a turn.
type BookingHandler struct {
	engine *dialog.Engine
	store  store.Store
	pool   workerpool.WorkerPool
	ttl    time.Duration

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewBookingHandler creates a new booking service handler. A zero ttl uses
// the default idle timeout.
func NewBookingHandler(engine *dialog.Engine, st store.Store, pool workerpool.WorkerPool, ttl time.Duration) *BookingHandler {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &BookingHandler{
		engine: engine,
		store:  st,
		pool:   pool,
		ttl:    ttl,
		locks:  make(map[string]*sessionLock),
	}
}

// lock serialises turns on one session. The returned func releases it.
func (h *BookingHandler) lock(id string) func() {
	h.locksMu.Lock()
	l, ok := h.locks[id]
	if !ok {
		l = &sessionLock{}
		h.locks[id] = l
	}
	l.refs++
	h.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.locks, id)
		}
		h.locksMu.Unlock()
	}
}

// StartReaper begins the background session TTL reaper.
func (h *BookingHandler) StartReaper(ctx context.Context) {
	reap := func() {
		ticker := time.NewTicker(reaperInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.ReapIdleSessions(ctx, time.Now())
			}
		}
	}
	if h.pool != nil {
		_ = h.pool.Submit(ctx, reap)
	} else {
		go reap()
	}
}

// ReapIdleSessions drops sessions idle longer than the TTL and returns how
// many were removed. Reaped flows end without telemetry, like a host abort.
// The active session gauge is set to the store-wide count that remains.
func (h *BookingHandler) ReapIdleSessions(ctx context.Context, now time.Time) int {
	ids, err := h.store.List(ctx)
	if err != nil {
		slog.Warn("list sessions for reaping", slog.String("error", err.Error()))
		return 0
	}

	reaped := 0
	for _, id := range ids {
		if h.reapIfIdle(ctx, id, now) {
			reaped++
		}
	}
	metrics.ActiveSessions.Set(float64(len(ids) - reaped))
	return reaped
}

// reapIfIdle deletes one idle session. The delete is conditional on the
// version checked here, so a turn committed meanwhile keeps the session.
func (h *BookingHandler) reapIfIdle(ctx context.Context, id string, now time.Time) bool {
	unlock := h.lock(id)
	defer unlock()

	snap, err := h.store.Load(ctx, id)
	if err != nil || now.Sub(snap.LastActive) <= h.ttl {
		return false
	}
	if err := h.store.Delete(ctx, id, snap.Version); err != nil {
		if !errors.Is(err, store.ErrVersionConflict) && !errors.Is(err, store.ErrSessionNotFound) {
			slog.Warn("reap booking session", slog.String("session_id", id), slog.String("error", err.Error()))
		}
		return false
	}
	slog.Warn("reaped stale booking session", slog.String("session_id", id))
	return true
}

func (h *BookingHandler) load(ctx context.Context, id string) (*dialog.Session, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("session_id is required"))
	}
	snap, err := h.store.Load(ctx, id)
	if err != nil {
		return nil, storeError(id, err)
	}
	return dialog.RestoreSession(snap), nil
}

// commit persists a session over the version it was loaded at. Finished
// sessions are deleted instead of saved. Either write fails if another host
// committed a turn on the same version first.
func (h *BookingHandler) commit(prev uint64) dialog.CommitFunc {
	return func(ctx context.Context, s *dialog.Session) error {
		if s.Done() {
			return storeError(s.ID, h.store.Delete(ctx, s.ID, prev))
		}
		snap := s.Snapshot()
		snap.Version = prev + 1
		return storeError(s.ID, h.store.Update(ctx, snap, prev))
	}
}

// create stores a freshly started session.
func (h *BookingHandler) create(ctx context.Context, s *dialog.Session) error {
	snap := s.Snapshot()
	snap.Version = 1
	return storeError(s.ID, h.store.Create(ctx, snap))
}

func storeError(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrSessionNotFound):
		return connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
	case errors.Is(err, store.ErrSessionExists):
		return connect.NewError(connect.CodeAlreadyExists, fmt.Errorf("session %q already exists", id))
	case errors.Is(err, store.ErrVersionConflict):
		return connect.NewError(connect.CodeAborted, fmt.Errorf("session %q changed by another turn", id))
	}
	return connect.NewError(connect.CodeUnavailable, err)
}

// engineError passes store errors raised during commit through and wraps
// everything else.
func engineError(err error) error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return err
	}
	if errors.Is(err, dialog.ErrFlowFinished) {
		return connect.NewError(connect.CodeFailedPrecondition, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func (h *BookingHandler) StartBooking(ctx context.Context, req *connect.Request[bookingv1.StartBookingRequest]) (*connect.Response[bookingv1.StartBookingResponse], error) {
	id := req.Msg.SessionID
	if id == "" {
		id = xid.New().String()
	}

	unlock := h.lock(id)
	defer unlock()

	session := dialog.NewSession(id)
	turn, err := h.engine.StartCommit(ctx, session, req.Msg.Details, h.create)
	if err != nil {
		return nil, engineError(err)
	}

	slog.InfoContext(ctx, "booking started",
		slog.String("session_id", id),
		slog.String("step", string(turn.Step)),
		slog.Int("missing_fields", len(req.Msg.Details.Missing())))

	return connect.NewResponse(&bookingv1.StartBookingResponse{
		SessionID: id,
		Turn:      turn,
	}), nil
}

func (h *BookingHandler) SendReply(ctx context.Context, req *connect.Request[bookingv1.SendReplyRequest]) (*connect.Response[bookingv1.SendReplyResponse], error) {
	if strings.TrimSpace(req.Msg.Text) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}

	unlock := h.lock(req.Msg.SessionID)
	defer unlock()

	session, err := h.load(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	turn, err := h.engine.ReplyCommit(ctx, session, req.Msg.Text, h.commit(session.Version))
	if err != nil {
		return nil, engineError(err)
	}

	if turn.Done {
		slog.InfoContext(ctx, "booking finished",
			slog.String("session_id", session.ID), slog.String("outcome", string(turn.Outcome)))
	}

	return connect.NewResponse(&bookingv1.SendReplyResponse{
		SessionID: session.ID,
		Turn:      turn,
	}), nil
}

func (h *BookingHandler) GetBooking(ctx context.Context, req *connect.Request[bookingv1.GetBookingRequest]) (*connect.Response[bookingv1.GetBookingResponse], error) {
	session, err := h.load(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	snap := session.Snapshot()
	details := session.Details()
	resp := &bookingv1.GetBookingResponse{
		SessionID: session.ID,
		Step:      session.CurrentStep(),
		Details:   details,
		Missing:   details.Missing(),
		Prompt:    h.engine.Pending(session),
		History:   snap.History,
		StartTime: session.StartTime.Format(time.RFC3339),
	}
	if snap.State != nil {
		resp.Turns = snap.State.Turns
	}
	return connect.NewResponse(resp), nil
}

func (h *BookingHandler) CancelBooking(ctx context.Context, req *connect.Request[bookingv1.CancelBookingRequest]) (*connect.Response[bookingv1.CancelBookingResponse], error) {
	unlock := h.lock(req.Msg.SessionID)
	defer unlock()

	session, err := h.load(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	_, err = h.engine.CancelCommit(ctx, session, h.commit(session.Version))
	if errors.Is(err, dialog.ErrFlowFinished) {
		// A finished flow left behind by an interrupted host; drop it.
		err = h.commit(session.Version)(ctx, session)
	}
	if err != nil {
		return nil, engineError(err)
	}

	return connect.NewResponse(&bookingv1.CancelBookingResponse{}), nil
}
