package config

import (
	"testing"
	"time"

	"github.com/voicetyped/flightbot/internal/store"
	"github.com/voicetyped/flightbot/pkg/events"
)

func TestStoreOptions(t *testing.T) {
	cfg := ServiceConfig{
		SessionStore:  store.KindRedis,
		RedisAddr:     "localhost:6379",
		RedisPassword: "pw",
		RedisDB:       2,
		SessionTTL:    time.Hour,
	}
	got := cfg.StoreOptions()
	want := store.Options{Kind: "redis", RedisAddr: "localhost:6379", RedisPassword: "pw", RedisDB: 2, TTL: time.Hour}
	if got != want {
		t.Errorf("StoreOptions() = %+v, want %+v", got, want)
	}
}

func TestTemporalEnabled(t *testing.T) {
	if (TemporalConfig{}).TemporalEnabled() {
		t.Error("empty host:port should disable Temporal")
	}
	if !(TemporalConfig{TemporalHostPort: "localhost:7233"}).TemporalEnabled() {
		t.Error("host:port set should enable Temporal")
	}
}

func TestWebhookEndpoints(t *testing.T) {
	cfg := WebhookConfig{
		WebhookURLs:   "https://hooks.example/booking",
		WebhookSecret: "s",
		WebhookEvents: "booking.confirmed, booking.rejected",
	}
	eps, err := cfg.WebhookEndpoints()
	if err != nil {
		t.Fatalf("WebhookEndpoints: %v", err)
	}
	if len(eps) != 1 || !eps[0].Wants(events.BookingRejected) || eps[0].Secret != "s" {
		t.Errorf("endpoints = %+v", eps)
	}

	if eps, _ := (WebhookConfig{}).WebhookEndpoints(); len(eps) != 0 {
		t.Errorf("empty config gave %d endpoints", len(eps))
	}
}
