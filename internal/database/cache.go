package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/pkg/utils"
)

// Cache key formats
const (
	QueryResultKey    = "cities:query:%s"
	DatasetSummaryKey = "cities:summary:%s"
	CountriesKey      = "cities:countries:%s"
	SystemHealthKey   = "system:health"
)

// Cache stores JSON encoded values. Get reports false on a miss.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Backend() string
}

// CacheKey fills a key format with a hash of scope and key, keeping keys short
// and separating entries of different datasets.
func CacheKey(format, scope, key string) string {
	return fmt.Sprintf(format, utils.MD5Hash(scope+"|"+key))
}

// NewCache picks Redis when the manager has a connection and an in-process cache otherwise.
func NewCache(m *Manager, defaultTTL time.Duration, logger *logrus.Logger) Cache {
	if m.HasRedis() {
		return NewRedisCache(m.Redis, logger)
	}
	return NewMemoryCache(defaultTTL, logger)
}

// RedisCache is shared between server instances
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(client *redis.Client, logger *logrus.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisCache) Backend() string { return "redis" }

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// MemoryCache is a per-process cache used when Redis is not configured. Values
// are stored JSON encoded so callers see the same copy semantics as Redis.
type MemoryCache struct {
	store  *gocache.Cache
	logger *logrus.Logger
}

func NewMemoryCache(defaultTTL time.Duration, logger *logrus.Logger) *MemoryCache {
	return &MemoryCache{
		store:  gocache.New(defaultTTL, 2*defaultTTL),
		logger: logger,
	}
}

func (c *MemoryCache) Backend() string { return "memory" }

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	cached, found := c.store.Get(key)
	if !found {
		return false, nil
	}

	data, ok := cached.([]byte)
	if !ok {
		c.store.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}
	c.store.Set(key, data, expiration)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

func (c *MemoryCache) ItemCount() int {
	return c.store.ItemCount()
}
