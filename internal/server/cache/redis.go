// Package cache keeps a read-through copy of the model catalog in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/go-redis/redis/v8"
)

const modelsKey = "models:available"

// kv is the part of *redis.Client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type ModelCache struct {
	client kv
	ttl    time.Duration
}

func NewModelCache(client kv, ttl time.Duration) *ModelCache {
	return &ModelCache{client: client, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Get returns the cached catalog. A missing key is a miss, not an error.
func (c *ModelCache) Get(ctx context.Context) ([]models.Model, bool, error) {
	data, err := c.client.Get(ctx, modelsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", modelsKey, err)
	}

	var list []models.Model
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", modelsKey, err)
	}
	return list, true, nil
}

func (c *ModelCache) Set(ctx context.Context, list []models.Model) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", modelsKey, err)
	}
	if err := c.client.Set(ctx, modelsKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", modelsKey, err)
	}
	return nil
}
