package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/voicetyped/flightbot/pkg/booking"
)

func TestParseConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		key      string
		endpoint string
		logsURL  string
	}{
		{
			name:     "full",
			in:       "InstrumentationKey=abc-123;IngestionEndpoint=https://ingest.example.com/;LiveEndpoint=https://live.example.com/",
			key:      "abc-123",
			endpoint: "https://ingest.example.com/",
			logsURL:  "https://ingest.example.com/v1/logs",
		},
		{
			name:     "bare key",
			in:       "abc-123",
			key:      "abc-123",
			endpoint: DefaultIngestionEndpoint,
			logsURL:  DefaultIngestionEndpoint + "/v1/logs",
		},
		{
			name:     "case and spacing",
			in:       " instrumentationkey = k ; ingestionendpoint=http://collector:4318 ;",
			key:      "k",
			endpoint: "http://collector:4318",
			logsURL:  "http://collector:4318/v1/logs",
		},
		{
			name:     "unknown keys ignored",
			in:       "InstrumentationKey=k;ApplicationId=xyz",
			key:      "k",
			endpoint: DefaultIngestionEndpoint,
			logsURL:  DefaultIngestionEndpoint + "/v1/logs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := ParseConnectionString(tt.in)
			if err != nil {
				t.Fatalf("ParseConnectionString: %v", err)
			}
			if cs.InstrumentationKey != tt.key {
				t.Errorf("key = %q, want %q", cs.InstrumentationKey, tt.key)
			}
			if cs.IngestionEndpoint != tt.endpoint {
				t.Errorf("endpoint = %q, want %q", cs.IngestionEndpoint, tt.endpoint)
			}
			if cs.LogsURL() != tt.logsURL {
				t.Errorf("logs URL = %q, want %q", cs.LogsURL(), tt.logsURL)
			}
		})
	}
}

func TestParseConnectionStringErrors(t *testing.T) {
	if _, err := ParseConnectionString("  "); !errors.Is(err, ErrEmptyConnectionString) {
		t.Errorf("empty: err = %v", err)
	}
	for _, in := range []string{
		"InstrumentationKey=k;garbage",
		"InstrumentationKey=k;IngestionEndpoint=not a url",
	} {
		if _, err := ParseConnectionString(in); err == nil {
			t.Errorf("ParseConnectionString(%q): expected error", in)
		}
	}
}

func TestNewLoggerWithoutConnectionString(t *testing.T) {
	logger, shutdown, err := NewLogger(context.Background(), LoggerConfig{})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected a logger that drops records")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestNewLoggerWithConnectionString(t *testing.T) {
	logger, shutdown, err := NewLogger(context.Background(), LoggerConfig{
		ConnectionString: "InstrumentationKey=k;IngestionEndpoint=http://127.0.0.1:4318",
		ServiceName:      "flightbot-test",
	})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a logger")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestNewLoggerInvalidConnectionString(t *testing.T) {
	if _, _, err := NewLogger(context.Background(), LoggerConfig{ConnectionString: "a=b;c"}); err == nil {
		t.Error("expected error for malformed connection string")
	}
}

// captureHandler records every slog record it receives.
type captureHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func TestReporterCompleted(t *testing.T) {
	h := &captureHandler{}
	r := NewReporter(slog.New(h))

	r.Completed(context.Background(), booking.Details{Origin: "Paris"})

	if len(h.records) != 1 {
		t.Fatalf("got %d records, want 1", len(h.records))
	}
	rec := h.records[0]
	if rec.Level != slog.LevelInfo {
		t.Errorf("level = %v, want info", rec.Level)
	}
	if rec.Message != MsgCompleted {
		t.Errorf("message = %q", rec.Message)
	}
}

func TestReporterRejectedCarriesRecord(t *testing.T) {
	h := &captureHandler{}
	r := NewReporter(slog.New(h))

	d := booking.Details{
		Origin:      "Paris",
		Destination: "Madrid",
		StartDate:   "2024-05-01",
		EndDate:     "2024-05-08",
		Budget:      "500",
	}
	r.Rejected(context.Background(), d)

	if len(h.records) != 1 {
		t.Fatalf("got %d records, want 1", len(h.records))
	}
	rec := h.records[0]
	if rec.Level != slog.LevelError {
		t.Errorf("level = %v, want error", rec.Level)
	}

	dims := map[string]string{}
	rec.Attrs(func(a slog.Attr) bool {
		if a.Key == DimensionsKey {
			for _, g := range a.Value.Group() {
				dims[g.Key] = g.Value.String()
			}
		}
		return true
	})
	for k, want := range d.Dimensions() {
		if dims[k] != want {
			t.Errorf("dimension %q = %q, want %q", k, dims[k], want)
		}
	}
}

func TestNilReporter(t *testing.T) {
	var r *Reporter
	r.Completed(context.Background(), booking.Details{})
	r.Rejected(context.Background(), booking.Details{})

	NewReporter(nil).Rejected(context.Background(), booking.Details{})
}
