package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voicetyped/flightbot/pkg/dialog"
)

// KeyPrefix namespaces session keys in Redis.
const KeyPrefix = "flightbot:session:"

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// RedisStore keeps snapshots as JSON values that expire after the TTL. Every
// save refreshes the expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Create(ctx context.Context, snap *dialog.SessionSnapshot) error {
	data, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, sessionKey(snap.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (r *RedisStore) Update(ctx context.Context, snap *dialog.SessionSnapshot, prev uint64) error {
	data, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}
	key := sessionKey(snap.ID)
	return r.compareAndDo(ctx, key, prev, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, key, data, r.ttl)
	})
}

func (r *RedisStore) Load(ctx context.Context, id string) (*dialog.SessionSnapshot, error) {
	return loadSnapshot(ctx, r.client, sessionKey(id))
}

func (r *RedisStore) Delete(ctx context.Context, id string, prev uint64) error {
	key := sessionKey(id)
	return r.compareAndDo(ctx, key, prev, func(pipe redis.Pipeliner) {
		pipe.Del(ctx, key)
	})
}

// compareAndDo runs write in a MULTI block if the snapshot at key still has
// version prev. WATCH aborts the block when another client writes key first.
func (r *RedisStore) compareAndDo(ctx context.Context, key string, prev uint64, write func(redis.Pipeliner)) error {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := loadSnapshot(ctx, tx, key)
		if err != nil {
			return err
		}
		if cur.Version != prev {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	if err != nil && !errors.Is(err, ErrVersionConflict) && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return err
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), KeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close releases the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func marshalSnapshot(snap *dialog.SessionSnapshot) ([]byte, error) {
	if snap == nil || snap.ID == "" {
		return nil, errors.New("snapshot needs an id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadSnapshot(ctx context.Context, c getter, key string) (*dialog.SessionSnapshot, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var snap dialog.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &snap, nil
}

func sessionKey(id string) string {
	return KeyPrefix + id
}
