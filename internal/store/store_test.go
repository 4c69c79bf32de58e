package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/voicetyped/flightbot/pkg/booking"
	"github.com/voicetyped/flightbot/pkg/dialog"
)

func sampleSnapshot(id string) *dialog.SessionSnapshot {
	now := time.Now().UTC().Truncate(time.Second)
	return &dialog.SessionSnapshot{
		ID: id,
		State: &dialog.FlowState{
			Index:   2,
			Details: booking.Details{Origin: "Paris", Destination: "Madrid"},
			Resolver: &dialog.ResolverState{
				Field:    booking.FieldStartDate,
				Attempts: 1,
			},
			Turns: 2,
		},
		History: []dialog.StepRecord{
			{FromStep: dialog.StepOrigin, ToStep: dialog.StepDestination, Trigger: "Paris", Timestamp: now},
		},
		StartTime:  now,
		LastActive: now,
		Version:    1,
	}
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, ttl)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Load missing: err = %v, want ErrSessionNotFound", err)
	}

	snap := sampleSnapshot("a")
	if err := s.Create(ctx, snap); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, sampleSnapshot("b")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, sampleSnapshot("a")); !errors.Is(err, ErrSessionExists) {
		t.Errorf("Create duplicate: err = %v, want ErrSessionExists", err)
	}

	got, err := s.Load(ctx, "a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.State.Details != snap.State.Details {
		t.Errorf("details = %+v, want %+v", got.State.Details, snap.State.Details)
	}
	if got.State.Step() != dialog.StepStartDate || got.State.Resolver.Attempts != 1 {
		t.Errorf("state = %+v", got.State)
	}
	if len(got.History) != 1 || got.History[0].Trigger != "Paris" {
		t.Errorf("history = %+v", got.History)
	}

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v, want [a b]", ids)
	}

	if err := s.Delete(ctx, "a", 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, "a"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Load after delete: err = %v", err)
	}
	if err := s.Delete(ctx, "a", 1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Delete missing: err = %v, want ErrSessionNotFound", err)
	}

	if err := s.Create(ctx, &dialog.SessionSnapshot{}); err == nil {
		t.Error("Create without id should fail")
	}
}

// testStoreVersioning checks that only one writer wins from a given version.
func testStoreVersioning(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Create(ctx, sampleSnapshot("v")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	next := sampleSnapshot("v")
	next.Version = 2
	next.State.Turns = 3
	if err := s.Update(ctx, next, 1); err != nil {
		t.Fatalf("Update from v1: %v", err)
	}

	stale := sampleSnapshot("v")
	stale.Version = 2
	if err := s.Update(ctx, stale, 1); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale Update: err = %v, want ErrVersionConflict", err)
	}
	if err := s.Delete(ctx, "v", 1); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale Delete: err = %v, want ErrVersionConflict", err)
	}

	got, err := s.Load(ctx, "v")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != 2 || got.State.Turns != 3 {
		t.Errorf("stored = v%d turns %d, want v2 turns 3", got.Version, got.State.Turns)
	}

	if err := s.Update(ctx, sampleSnapshot("gone"), 1); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Update missing: err = %v, want ErrSessionNotFound", err)
	}
	if err := s.Delete(ctx, "v", 2); err != nil {
		t.Errorf("Delete current: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestMemoryStoreVersioning(t *testing.T) {
	testStoreVersioning(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t, time.Hour)
	testStoreRoundTrip(t, s)
}

func TestRedisStoreVersioning(t *testing.T) {
	s, _ := newRedisStore(t, time.Hour)
	testStoreVersioning(t, s)
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := s.Create(ctx, sampleSnapshot("x")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ttl := mr.TTL(KeyPrefix + "x"); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	mr.FastForward(30 * time.Second)
	next := sampleSnapshot("x")
	next.Version = 2
	if err := s.Update(ctx, next, 1); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ttl := mr.TTL(KeyPrefix + "x"); ttl != time.Minute {
		t.Errorf("ttl after update = %v, want refreshed 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := s.Load(ctx, "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Load after expiry: err = %v, want ErrSessionNotFound", err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, Options{})
	if err != nil {
		t.Fatalf("New memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("store = %T, want *MemoryStore", s)
	}

	mr := miniredis.RunT(t)
	s, err = New(ctx, Options{Kind: KindRedis, RedisAddr: mr.Addr()})
	if err != nil {
		t.Fatalf("New redis: %v", err)
	}
	if _, ok := s.(*RedisStore); !ok {
		t.Errorf("store = %T, want *RedisStore", s)
	}

	if _, err := New(ctx, Options{Kind: "etcd"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
