package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"accountability-service/internal/model"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheKey = "accountability:dashboard:aggregates"

// Cache holds the last projection. It is a disposable copy; the store stays
// the only source of truth.
//
// Entries are keyed by generation. Get reports the current generation and a
// projection built after it must be Set under that same generation. Invalidate
// moves to a new generation, so a projection read before a write can never be
// served after it.
type Cache interface {
	Get(ctx context.Context) (stats *model.AggregateStats, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, stats *model.AggregateStats) error
	Invalidate(ctx context.Context) error
}

type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultCacheKey
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

// ConnectRedis opens a client and pings it once.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *RedisCache) genKey() string { return r.key + ":gen" }

func (r *RedisCache) entryKey(gen int64) string { return fmt.Sprintf("%s:%d", r.key, gen) }

func (r *RedisCache) Get(ctx context.Context) (*model.AggregateStats, int64, bool, error) {
	gen, err := r.client.Get(ctx, r.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		gen, err = 0, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := r.client.Get(ctx, r.entryKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, err
	}
	var stats model.AggregateStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, gen, false, fmt.Errorf("decode cached aggregates: %w", err)
	}
	return &stats, gen, true, nil
}

func (r *RedisCache) Set(ctx context.Context, gen int64, stats *model.AggregateStats) error {
	body, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.entryKey(gen), body, r.ttl).Err()
}

// Invalidate bumps the generation. Entries of older generations expire by TTL.
func (r *RedisCache) Invalidate(ctx context.Context) error {
	return r.client.Incr(ctx, r.genKey()).Err()
}

// NoopCache never holds anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context) (*model.AggregateStats, int64, bool, error) {
	return nil, 0, false, nil
}
func (NoopCache) Set(context.Context, int64, *model.AggregateStats) error { return nil }
func (NoopCache) Invalidate(context.Context) error                        { return nil }
