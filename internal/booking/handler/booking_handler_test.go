package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/voicetyped/flightbot/internal/booking/bookingv1"
	"github.com/voicetyped/flightbot/internal/metrics"
	"github.com/voicetyped/flightbot/internal/store"
	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/dialog"
	"github.com/voicetyped/flightbot/pkg/telemetry"
	"github.com/voicetyped/flightbot/pkg/timex"
)

type countingHandler struct {
	mu     sync.Mutex
	levels []slog.Level
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *countingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.levels = append(h.levels, r.Level)
	return nil
}

func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

func (h *countingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.levels)
}

type testEnv struct {
	client    bookingv1.BookingServiceClient
	handler   *BookingHandler
	store     *store.MemoryStore
	telemetry *countingHandler
}

func newTestHandler(st store.Store, tel *countingHandler) *BookingHandler {
	rec := &timex.Recognizer{
		Now:      func() time.Time { return time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
	engine := dialog.NewEngine(
		dialog.NewWaterfall(dialog.StaticCatalog(dialog.DefaultCatalog()), rec),
		telemetry.NewReporter(slog.New(tel)),
		nil,
		dialog.WithHost("rpc"),
	)
	return NewBookingHandler(engine, st, nil, time.Minute)
}

func setupBookingTestServer(t *testing.T) *testEnv {
	t.Helper()

	tel := &countingHandler{}
	st := store.NewMemoryStore()
	h := newTestHandler(st, tel)

	mux := http.NewServeMux()
	path, hdlr := bookingv1.NewBookingServiceHandler(h)
	mux.Handle(path, hdlr)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		client:    bookingv1.NewBookingServiceClient(http.DefaultClient, server.URL),
		handler:   h,
		store:     st,
		telemetry: tel,
	}
}

func (e *testEnv) reply(t *testing.T, id, text string) dialog.Turn {
	t.Helper()
	resp, err := e.client.SendReply(context.Background(), connect.NewRequest(&bookingv1.SendReplyRequest{
		SessionID: id,
		Text:      text,
	}))
	if err != nil {
		t.Fatalf("SendReply(%q): %v", text, err)
	}
	return resp.Msg.Turn
}

func TestStartBooking(t *testing.T) {
	env := setupBookingTestServer(t)

	resp, err := env.client.StartBooking(context.Background(), connect.NewRequest(&bookingv1.StartBookingRequest{
		Details: booking.Details{Origin: "Paris"},
	}))
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	if resp.Msg.SessionID == "" {
		t.Fatal("expected a generated session id")
	}
	turn := resp.Msg.Turn
	if turn.Step != dialog.StepDestination || turn.Prompt == nil {
		t.Errorf("turn = %+v, want destination prompt", turn)
	}

	if _, err := env.store.Load(context.Background(), resp.Msg.SessionID); err != nil {
		t.Errorf("session not persisted: %v", err)
	}

	got, err := env.client.GetBooking(context.Background(), connect.NewRequest(&bookingv1.GetBookingRequest{
		SessionID: resp.Msg.SessionID,
	}))
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if len(got.Msg.Missing) != 4 || got.Msg.Missing[0] != booking.FieldDestination {
		t.Errorf("missing = %v, want the four fields after origin", got.Msg.Missing)
	}
}

func TestBookingFlowEndToEnd(t *testing.T) {
	env := setupBookingTestServer(t)
	ctx := context.Background()

	_, err := env.client.StartBooking(ctx, connect.NewRequest(&bookingv1.StartBookingRequest{
		SessionID: "call-1",
		Details:   booking.Details{Origin: "Paris"},
	}))
	if err != nil {
		t.Fatalf("StartBooking: %v", err)
	}

	env.reply(t, "call-1", "Madrid")
	env.reply(t, "call-1", "tomorrow")
	env.reply(t, "call-1", "2024-04-20")
	turn := env.reply(t, "call-1", "500€")
	if turn.Step != dialog.StepConfirm || !strings.Contains(turn.Prompt.Text, "Paris") {
		t.Fatalf("turn = %+v, want confirm summary mentioning Paris", turn)
	}

	got, err := env.client.GetBooking(ctx, connect.NewRequest(&bookingv1.GetBookingRequest{SessionID: "call-1"}))
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Msg.Step != dialog.StepConfirm || got.Msg.Details.StartDate != "2024-04-11" || got.Msg.Turns != 4 {
		t.Errorf("GetBooking = %+v", got.Msg)
	}
	if len(got.Msg.History) == 0 {
		t.Error("expected step history")
	}
	if len(got.Msg.Missing) != 0 {
		t.Errorf("missing = %v, want none at confirm", got.Msg.Missing)
	}

	turn = env.reply(t, "call-1", "yes")
	if !turn.Done || turn.Outcome != dialog.OutcomeConfirmed || turn.Result == nil {
		t.Fatalf("turn = %+v, want confirmed", turn)
	}
	if turn.Result.Destination != "Madrid" || turn.Result.Budget != "500€" {
		t.Errorf("result = %+v", turn.Result)
	}
	if n := env.telemetry.count(); n != 1 {
		t.Errorf("telemetry records = %d, want 1", n)
	}

	// Finished sessions are removed.
	_, err = env.client.SendReply(ctx, connect.NewRequest(&bookingv1.SendReplyRequest{SessionID: "call-1", Text: "yes"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("reply after finish: code = %v, want NotFound", connect.CodeOf(err))
	}
}

func TestSendReplyErrors(t *testing.T) {
	env := setupBookingTestServer(t)
	ctx := context.Background()

	_, err := env.client.SendReply(ctx, connect.NewRequest(&bookingv1.SendReplyRequest{SessionID: "nope", Text: "hi"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("unknown session: code = %v, want NotFound", connect.CodeOf(err))
	}

	_, err = env.client.SendReply(ctx, connect.NewRequest(&bookingv1.SendReplyRequest{SessionID: "nope", Text: "  "}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("empty text: code = %v, want InvalidArgument", connect.CodeOf(err))
	}

	_, err = env.client.GetBooking(ctx, connect.NewRequest(&bookingv1.GetBookingRequest{}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("missing id: code = %v, want InvalidArgument", connect.CodeOf(err))
	}
}

func TestStartBookingDuplicate(t *testing.T) {
	env := setupBookingTestServer(t)
	ctx := context.Background()

	req := &bookingv1.StartBookingRequest{SessionID: "dup"}
	if _, err := env.client.StartBooking(ctx, connect.NewRequest(req)); err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	_, err := env.client.StartBooking(ctx, connect.NewRequest(req))
	if connect.CodeOf(err) != connect.CodeAlreadyExists {
		t.Errorf("code = %v, want AlreadyExists", connect.CodeOf(err))
	}
}

func TestCancelBooking(t *testing.T) {
	env := setupBookingTestServer(t)
	ctx := context.Background()

	if _, err := env.client.StartBooking(ctx, connect.NewRequest(&bookingv1.StartBookingRequest{SessionID: "c1"})); err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	if _, err := env.client.CancelBooking(ctx, connect.NewRequest(&bookingv1.CancelBookingRequest{SessionID: "c1"})); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if _, err := env.store.Load(ctx, "c1"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("session still stored: %v", err)
	}
	if n := env.telemetry.count(); n != 0 {
		t.Errorf("telemetry records = %d, want 0", n)
	}

	_, err := env.client.CancelBooking(ctx, connect.NewRequest(&bookingv1.CancelBookingRequest{SessionID: "c1"}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("second cancel: code = %v, want NotFound", connect.CodeOf(err))
	}
}

func TestConcurrentRepliesAreSerialised(t *testing.T) {
	env := setupBookingTestServer(t)
	ctx := context.Background()

	if _, err := env.client.StartBooking(ctx, connect.NewRequest(&bookingv1.StartBookingRequest{SessionID: "race"})); err != nil {
		t.Fatalf("StartBooking: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.client.SendReply(ctx, connect.NewRequest(&bookingv1.SendReplyRequest{SessionID: "race", Text: "help"}))
		}()
	}
	wg.Wait()

	got, err := env.client.GetBooking(ctx, connect.NewRequest(&bookingv1.GetBookingRequest{SessionID: "race"}))
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if got.Msg.Turns != n {
		t.Errorf("turns = %d, want %d (lost update)", got.Msg.Turns, n)
	}
}

func TestReapIdleSessions(t *testing.T) {
	env := setupBookingTestServer(t)
	ctx := context.Background()

	if _, err := env.client.StartBooking(ctx, connect.NewRequest(&bookingv1.StartBookingRequest{SessionID: "idle"})); err != nil {
		t.Fatalf("StartBooking: %v", err)
	}

	if n := env.handler.ReapIdleSessions(ctx, time.Now()); n != 0 {
		t.Errorf("reaped fresh sessions: %d", n)
	}
	if n := env.handler.ReapIdleSessions(ctx, time.Now().Add(time.Hour)); n != 1 {
		t.Errorf("reaped = %d, want 1", n)
	}
	if _, err := env.store.Load(ctx, "idle"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("idle session still stored: %v", err)
	}
	if got := testutil.ToFloat64(metrics.ActiveSessions); got != 0 {
		t.Errorf("active sessions gauge = %v, want 0", got)
	}
}

// rendezvousStore holds armed Loads until the test releases them, so two
// handlers can be made to read the same snapshot version.
type rendezvousStore struct {
	store.Store
	armed   atomic.Bool
	arrived chan struct{}
	release chan struct{}
}

func newRendezvousStore() *rendezvousStore {
	return &rendezvousStore{
		Store:   store.NewMemoryStore(),
		arrived: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
}

func (s *rendezvousStore) Load(ctx context.Context, id string) (*dialog.SessionSnapshot, error) {
	snap, err := s.Store.Load(ctx, id)
	if s.armed.Load() {
		s.arrived <- struct{}{}
		<-s.release
	}
	return snap, err
}

// meet waits for two armed Loads and lets both continue.
func (s *rendezvousStore) meet(t *testing.T) {
	t.Helper()
	for i := 0; i < 2; i++ {
		select {
		case <-s.arrived:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for concurrent loads")
		}
	}
	s.armed.Store(false)
	close(s.release)
}

// driveToConfirm starts a session on h and answers every step up to the
// confirmation prompt.
func driveToConfirm(t *testing.T, h *BookingHandler, id string) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.StartBooking(ctx, connect.NewRequest(&bookingv1.StartBookingRequest{
		SessionID: id,
		Details:   booking.Details{Origin: "Paris"},
	})); err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	for _, text := range []string{"Madrid", "tomorrow", "2024-04-20", "500"} {
		if _, err := h.SendReply(ctx, connect.NewRequest(&bookingv1.SendReplyRequest{SessionID: id, Text: text})); err != nil {
			t.Fatalf("SendReply(%q): %v", text, err)
		}
	}
}

func TestSharedStoreReportsOneOutcome(t *testing.T) {
	st := newRendezvousStore()
	tel := &countingHandler{}
	first := newTestHandler(st, tel)
	second := newTestHandler(st, tel)
	ctx := context.Background()

	driveToConfirm(t, first, "shared")

	st.armed.Store(true)
	errs := make(chan error, 2)
	for _, c := range []struct {
		h    *BookingHandler
		text string
	}{{first, "yes"}, {second, "no"}} {
		go func() {
			_, err := c.h.SendReply(ctx, connect.NewRequest(&bookingv1.SendReplyRequest{SessionID: "shared", Text: c.text}))
			errs <- err
		}()
	}
	st.meet(t)

	var failed []error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) != 1 {
		t.Fatalf("failed replies = %v, want exactly one", failed)
	}
	if code := connect.CodeOf(failed[0]); code != connect.CodeAborted && code != connect.CodeNotFound {
		t.Errorf("losing reply code = %v, want Aborted or NotFound", code)
	}
	if n := tel.count(); n != 1 {
		t.Errorf("telemetry records = %d, want exactly 1", n)
	}
	if _, err := st.Load(ctx, "shared"); !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("finished session still stored: %v", err)
	}
}

func TestReaperDoesNotResurrectOrDropCommittedTurn(t *testing.T) {
	st := newRendezvousStore()
	tel := &countingHandler{}
	replier := newTestHandler(st, tel)
	reaper := newTestHandler(st, tel)
	ctx := context.Background()

	if _, err := replier.StartBooking(ctx, connect.NewRequest(&bookingv1.StartBookingRequest{SessionID: "idle"})); err != nil {
		t.Fatalf("StartBooking: %v", err)
	}

	st.armed.Store(true)
	replyErr := make(chan error, 1)
	reaped := make(chan int, 1)
	go func() {
		_, err := replier.SendReply(ctx, connect.NewRequest(&bookingv1.SendReplyRequest{SessionID: "idle", Text: "Paris"}))
		replyErr <- err
	}()
	go func() {
		reaped <- reaper.ReapIdleSessions(ctx, time.Now().Add(time.Hour))
	}()
	st.meet(t)

	err := <-replyErr
	n := <-reaped
	_, loadErr := st.Load(ctx, "idle")
	switch n {
	case 1:
		if connect.CodeOf(err) != connect.CodeNotFound {
			t.Errorf("reply after reap: code = %v, want NotFound", connect.CodeOf(err))
		}
		if !errors.Is(loadErr, store.ErrSessionNotFound) {
			t.Errorf("reaped session came back: %v", loadErr)
		}
	case 0:
		if err != nil {
			t.Errorf("reply: %v", err)
		}
		if loadErr != nil {
			t.Errorf("committed session lost: %v", loadErr)
		}
	default:
		t.Fatalf("reaped = %d", n)
	}
}
