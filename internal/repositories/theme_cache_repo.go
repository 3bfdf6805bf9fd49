package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prudhvinik1/themesync/internal/models"
	"github.com/redis/go-redis/v9"
)

const themeCachePrefix = "themedata:"

// RedisThemeCacheRepository caches the latest snapshot per shop so
// subscriber connects and theme-data reads don't hit Postgres every
// time. Entries expire on their own; writes after a sync or a feed event
// keep them fresh.
type RedisThemeCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisThemeCacheRepository(client *redis.Client, ttl time.Duration) *RedisThemeCacheRepository {
	return &RedisThemeCacheRepository{client: client, ttl: ttl}
}

func (r *RedisThemeCacheRepository) SetLatest(ctx context.Context, snapshot *models.ThemeSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := themeCacheKey(snapshot.ShopDomain)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

func (r *RedisThemeCacheRepository) GetLatest(ctx context.Context, shopDomain string) (*models.ThemeSnapshot, error) {
	data, err := r.client.Get(ctx, themeCacheKey(shopDomain)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached snapshot: %w", err)
	}

	var snapshot models.ThemeSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	return &snapshot, nil
}

func (r *RedisThemeCacheRepository) Invalidate(ctx context.Context, shopDomain string) error {
	if err := r.client.Del(ctx, themeCacheKey(shopDomain)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached snapshot: %w", err)
	}
	return nil
}

func themeCacheKey(shopDomain string) string {
	return themeCachePrefix + shopDomain
}
