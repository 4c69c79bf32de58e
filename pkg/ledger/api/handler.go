package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/voicetyped/flightbot/pkg/ledger"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Handler provides read-only REST endpoints over the booking ledger.
type Handler struct {
	repo *ledger.Repository
}

// NewHandler creates a new ledger API handler.
func NewHandler(repo *ledger.Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers all ledger API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/bookings", h.List)
	mux.HandleFunc("GET /api/v1/bookings/{id}", h.Get)
	mux.HandleFunc("GET /api/v1/sessions/{sid}/bookings", h.ListBySession)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func toBookingResponse(b *ledger.Booking) BookingResponse {
	return BookingResponse{
		ID:        b.ID,
		SessionID: b.SessionID,
		Source:    b.Source,
		Outcome:   b.Outcome,
		Details:   b.Details(),
		Turns:     b.Turns,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}

func toBookingResponses(bookings []ledger.Booking) []BookingResponse {
	resp := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, toBookingResponse(&bookings[i]))
	}
	return resp
}

// List handles GET /api/v1/bookings?outcome=&limit=&offset=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	outcome := q.Get("outcome")
	if outcome != "" && outcome != ledger.OutcomeConfirmed && outcome != ledger.OutcomeRejected {
		writeError(w, http.StatusBadRequest, "outcome must be confirmed or rejected")
		return
	}
	limit, err := intParam(q.Get("limit"), defaultLimit)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	bookings, err := h.repo.List(r.Context(), outcome, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Bookings: toBookingResponses(bookings),
		Limit:    limit,
		Offset:   offset,
	})
}

// Get handles GET /api/v1/bookings/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load booking")
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// ListBySession handles GET /api/v1/sessions/{sid}/bookings
func (h *Handler) ListBySession(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.repo.GetBySession(r.Context(), r.PathValue("sid"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
