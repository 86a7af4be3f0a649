package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// =====================================================
// REDIS CLIENT
// =====================================================

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(addr, password string, db int) *RedisClient {
	return &RedisClient{
		Client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}),
	}
}

func (r *RedisClient) Connect(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

func (r *RedisClient) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// =====================================================
// CALLBACK DEDUP STORE
// =====================================================
// Fast-path filter for duplicate gateway notifications. Keys live for
// a day; the ledger remains the authority when a key is missing.

const (
	dedupKeyPrefix = "callback:"
	dedupTTL       = 24 * time.Hour
)

type DedupStore struct {
	client *redis.Client
}

func NewDedupStore(rc *RedisClient) *DedupStore {
	return &DedupStore{client: rc.Client}
}

func (d *DedupStore) Seen(ctx context.Context, key string) (bool, error) {
	err := d.client.Get(ctx, dedupKeyPrefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup lookup failed: %w", err)
	}
	return true, nil
}

func (d *DedupStore) Mark(ctx context.Context, key string) error {
	if err := d.client.Set(ctx, dedupKeyPrefix+key, "1", dedupTTL).Err(); err != nil {
		return fmt.Errorf("dedup mark failed: %w", err)
	}
	return nil
}

// =====================================================
// IN-MEMORY DEDUP STORE
// =====================================================
// Used by tests and single-process setups without Redis.

type MemoryDedupStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{seen: make(map[string]struct{})}
}

func (d *MemoryDedupStore) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[key]
	return ok, nil
}

func (d *MemoryDedupStore) Mark(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[key] = struct{}{}
	return nil
}
