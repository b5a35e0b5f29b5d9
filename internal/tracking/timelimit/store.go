package timelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for persisted session start times
	startTimeKeyPrefix = "tracking:start_time:"
	// Default TTL for start-time keys; long enough to survive a reload,
	// short enough not to pin stale sessions forever
	defaultStartTimeTTL = 24 * time.Hour
)

// StartTimeStore persists the session start timestamp keyed by content ID,
// so a timed session resumes its original deadline after a page reload.
// The value is written once (if absent) and read on every tick.
type StartTimeStore interface {
	// Get returns the persisted start time for a content ID.
	// The second return is false when no start time is recorded.
	Get(ctx context.Context, contentID uint) (time.Time, bool, error)

	// Put records a start time for a content ID.
	Put(ctx context.Context, contentID uint, start time.Time) error
}

// MemoryStore is an in-process StartTimeStore, the default when no
// external storage is wired in.
type MemoryStore struct {
	mu     sync.RWMutex
	starts map[uint]time.Time
}

// NewMemoryStore creates an empty in-memory start-time store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		starts: make(map[uint]time.Time),
	}
}

func (s *MemoryStore) Get(ctx context.Context, contentID uint) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, ok := s.starts[contentID]
	return start, ok, nil
}

func (s *MemoryStore) Put(ctx context.Context, contentID uint, start time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.starts[contentID] = start
	return nil
}

// RedisStore is a Redis-backed StartTimeStore, used when timed sessions
// must survive process restarts within the same deployment.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-based start-time store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultStartTimeTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(contentID uint) string {
	return fmt.Sprintf("%s%d", startTimeKeyPrefix, contentID)
}

func (s *RedisStore) Get(ctx context.Context, contentID uint) (time.Time, bool, error) {
	raw, err := s.client.Get(ctx, s.key(contentID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read start time: %w", err)
	}

	start, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt start time for content %d: %w", contentID, err)
	}
	return start, true, nil
}

func (s *RedisStore) Put(ctx context.Context, contentID uint, start time.Time) error {
	err := s.client.Set(ctx, s.key(contentID), start.Format(time.RFC3339Nano), s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to persist start time: %w", err)
	}
	return nil
}
