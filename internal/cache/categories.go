// Package cache provides the read-through category cache. Categories are a
// flat read-only reference set; the only invalidation rule is TTL expiry,
// which keeps them fresh for the duration of a form or filter session.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"doska-client/internal/model"
)

const (
	// categoriesKey is the Redis key holding the serialized category list.
	categoriesKey = "doska:categories"

	// DefaultTTL bounds how stale the category list may get.
	DefaultTTL = 10 * time.Minute
)

// FetchFunc loads the category list from the backend on a cache miss.
type FetchFunc func(ctx context.Context) ([]model.Category, error)

// Categories is the read-through cache interface. Two backends exist:
// Redis (shared across replicas) and in-process memory (no Redis configured).
type Categories interface {
	Get(ctx context.Context) ([]model.Category, error)
}

// Memory caches the category list in process memory.
type Memory struct {
	fetch FetchFunc
	ttl   time.Duration

	mu        sync.Mutex
	data      []model.Category
	fetchedAt time.Time
}

// NewMemory builds the in-process cache. A non-positive ttl uses DefaultTTL.
func NewMemory(fetch FetchFunc, ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{fetch: fetch, ttl: ttl}
}

func (m *Memory) Get(ctx context.Context) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data != nil && time.Since(m.fetchedAt) < m.ttl {
		return append([]model.Category(nil), m.data...), nil
	}

	data, err := m.fetch(ctx)
	if err != nil {
		// Serve stale data over an error when we have any.
		if m.data != nil {
			return append([]model.Category(nil), m.data...), nil
		}
		return nil, err
	}
	m.data = data
	m.fetchedAt = time.Now()
	return append([]model.Category(nil), data...), nil
}

// Redis caches the category list as a JSON blob with a TTL.
type Redis struct {
	client *redis.Client
	fetch  FetchFunc
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to Redis (URL format redis://[:password@]host:port[/db])
// and pings it to fail fast on startup.
func NewRedis(ctx context.Context, redisURL string, fetch FetchFunc, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, fetch: fetch, ttl: ttl, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context) ([]model.Category, error) {
	raw, err := r.client.Get(ctx, categoriesKey).Bytes()
	if err == nil {
		var categories []model.Category
		if jsonErr := json.Unmarshal(raw, &categories); jsonErr == nil {
			return categories, nil
		}
		// Unreadable blob: fall through to a fresh fetch which rewrites it.
	} else if err != redis.Nil {
		r.logger.Warn("category cache read failed", zap.Error(err))
	}

	categories, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(categories); err == nil {
		// Best effort: a failed write only costs the next request a fetch.
		if err := r.client.Set(ctx, categoriesKey, raw, r.ttl).Err(); err != nil {
			r.logger.Warn("category cache write failed", zap.Error(err))
		}
	}
	return categories, nil
}

// Close releases the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
