// Package session stores multi-step flow state between chat updates:
// which wizard step a chat is on and the inputs collected so far. Redis
// backs production deployments; the memory store covers tests and
// single-node use.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoState is returned by Get when the chat has no stored flow state.
var ErrNoState = errors.New("session: no state")

// DefaultTTL bounds how long an abandoned wizard keeps its state.
const DefaultTTL = 24 * time.Hour

// Flow stores per-chat wizard state as a JSON blob with a TTL.
type Flow interface {
	Put(ctx context.Context, chatID int64, state any) error
	Get(ctx context.Context, chatID int64, dest any) error
	Clear(ctx context.Context, chatID int64) error
}

// RedisFlow keeps flow state in Redis.
type RedisFlow struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisFlow creates a Redis-backed flow store.
func NewRedisFlow(rdb *redis.Client, ttl time.Duration) *RedisFlow {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFlow{rdb: rdb, ttl: ttl, prefix: "flow:"}
}

func (f *RedisFlow) key(chatID int64) string {
	return f.prefix + strconv.FormatInt(chatID, 10)
}

// Put stores the chat's state, resetting its TTL.
func (f *RedisFlow) Put(ctx context.Context, chatID int64, state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}
	return f.rdb.Set(ctx, f.key(chatID), raw, f.ttl).Err()
}

// Get loads the chat's state into dest, or ErrNoState.
func (f *RedisFlow) Get(ctx context.Context, chatID int64, dest any) error {
	raw, err := f.rdb.Get(ctx, f.key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNoState
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("session: unmarshal state: %w", err)
	}
	return nil
}

// Clear drops the chat's state. Absent state is not an error.
func (f *RedisFlow) Clear(ctx context.Context, chatID int64) error {
	return f.rdb.Del(ctx, f.key(chatID)).Err()
}

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

// MemoryFlow keeps flow state in process memory.
type MemoryFlow struct {
	mu  sync.Mutex
	m   map[int64]memoryEntry
	ttl time.Duration
	now func() time.Time
}

// NewMemoryFlow creates an in-memory flow store.
func NewMemoryFlow(ttl time.Duration) *MemoryFlow {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryFlow{m: make(map[int64]memoryEntry), ttl: ttl, now: time.Now}
}

func (f *MemoryFlow) Put(ctx context.Context, chatID int64, state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}
	f.mu.Lock()
	f.m[chatID] = memoryEntry{raw: raw, expiresAt: f.now().Add(f.ttl)}
	f.mu.Unlock()
	return nil
}

func (f *MemoryFlow) Get(ctx context.Context, chatID int64, dest any) error {
	f.mu.Lock()
	entry, ok := f.m[chatID]
	if ok && f.now().After(entry.expiresAt) {
		delete(f.m, chatID)
		ok = false
	}
	f.mu.Unlock()
	if !ok {
		return ErrNoState
	}
	if err := json.Unmarshal(entry.raw, dest); err != nil {
		return fmt.Errorf("session: unmarshal state: %w", err)
	}
	return nil
}

func (f *MemoryFlow) Clear(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	delete(f.m, chatID)
	f.mu.Unlock()
	return nil
}
