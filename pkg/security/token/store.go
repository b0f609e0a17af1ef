package token

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks revoked token IDs until they would have expired anyway.
type Store interface {
	// Set marks tokenID revoked for the given duration.
	Set(ctx context.Context, tokenID string, expiration time.Duration) error

	// Check reports whether tokenID is revoked.
	Check(ctx context.Context, tokenID string) (bool, error)

	// Close releases store resources.
	Close() error
}

// MemoryStore is an in-process revocation store. Expired entries are
// dropped lazily on Check and by a background sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemoryStore creates a memory store sweeping at the given interval.
// A non-positive interval defaults to one minute.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	s := &MemoryStore{
		revoked: make(map[string]time.Time),
		stop:    make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval)
	return s
}

func (s *MemoryStore) Set(ctx context.Context, tokenID string, expiration time.Duration) error {
	s.mu.Lock()
	s.revoked[tokenID] = time.Now().Add(expiration)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Check(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	until, ok := s.revoked[tokenID]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		s.mu.Lock()
		delete(s.revoked, tokenID)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, until := range s.revoked {
				if now.After(until) {
					delete(s.revoked, id)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// redisKeyPrefix namespaces revocation entries in a shared instance.
const redisKeyPrefix = "guardian:token:revoked:"

// RedisStore keeps revocation entries in Redis so every replica sees a
// logout immediately. Entries expire with the token.
type RedisStore struct {
	cli redis.UniversalClient
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(cli redis.UniversalClient) *RedisStore {
	return &RedisStore{cli: cli}
}

func (s *RedisStore) Set(ctx context.Context, tokenID string, expiration time.Duration) error {
	return s.cli.Set(ctx, redisKeyPrefix+tokenID, "1", expiration).Err()
}

func (s *RedisStore) Check(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.cli.Exists(ctx, redisKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.cli.Close()
}
