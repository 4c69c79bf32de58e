// Package store persists booking session snapshots between turns.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voicetyped/flightbot/pkg/dialog"
)

// ErrSessionNotFound is returned when no snapshot exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned by Create when the id is already taken.
var ErrSessionExists = errors.New("session already exists")

// ErrVersionConflict is returned when the stored snapshot has moved past the
// version the caller loaded.
var ErrVersionConflict = errors.New("session version conflict")

// Store saves and loads session snapshots. Writes after Create are
// conditional on the version the caller last loaded, so two hosts sharing a
// store cannot both commit a turn from the same snapshot.
type Store interface {
	Create(ctx context.Context, snap *dialog.SessionSnapshot) error
	// Update replaces the snapshot if the stored version is prev.
	Update(ctx context.Context, snap *dialog.SessionSnapshot, prev uint64) error
	Load(ctx context.Context, id string) (*dialog.SessionSnapshot, error)
	// Delete removes the snapshot if the stored version is prev.
	Delete(ctx context.Context, id string, prev uint64) error
	List(ctx context.Context) ([]string, error)
}

// Kinds accepted by New.
const (
	KindMemory = "memory"
	KindRedis  = "redis"
)

// Options configures New.
type Options struct {
	Kind          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// New builds the store selected by opts.Kind. An empty kind means memory.
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindRedis:
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.TTL)
	}
	return nil, fmt.Errorf("unknown session store %q", opts.Kind)
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]*dialog.SessionSnapshot
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[string]*dialog.SessionSnapshot)}
}

func (m *MemoryStore) Create(_ context.Context, snap *dialog.SessionSnapshot) error {
	if snap == nil || snap.ID == "" {
		return errors.New("snapshot needs an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[snap.ID]; ok {
		return ErrSessionExists
	}
	m.snaps[snap.ID] = snap
	return nil
}

func (m *MemoryStore) Update(_ context.Context, snap *dialog.SessionSnapshot, prev uint64) error {
	if snap == nil || snap.ID == "" {
		return errors.New("snapshot needs an id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.snaps[snap.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if cur.Version != prev {
		return ErrVersionConflict
	}
	m.snaps[snap.ID] = snap
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*dialog.SessionSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snap, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string, prev uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.snaps[id]
	if !ok {
		return ErrSessionNotFound
	}
	if cur.Version != prev {
		return ErrVersionConflict
	}
	delete(m.snaps, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.snaps))
	for id := range m.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
