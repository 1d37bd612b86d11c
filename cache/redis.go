// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tagPrefix namespaces tag sets away from value keys.
const tagPrefix = "tag:"

// Redis is a [Cache] over a Redis backend. Tags are modeled as sets whose
// members are the value keys carrying the tag; flushing a tag deletes the
// member keys and the set itself.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client. The caller owns the client lifecycle.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisFromURL parses a Redis URL, connects, and verifies the connection.
func NewRedisFromURL(ctx context.Context, redisURL string) (*Redis, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}
	client := redis.NewClient(options)
	backend := NewRedis(client)
	if err := backend.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return backend, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %q: %w", key, err)
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, value, ttl)
	for _, tag := range tags {
		tagKey := tagPrefix + tag
		pipe.SAdd(ctx, tagKey, key)
		// Tag sets outlive their members slightly so a flush after value
		// expiry still works; they are removed on flush.
		pipe.Expire(ctx, tagKey, ttl+time.Hour)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) FlushTags(ctx context.Context, tags []string) error {
	for _, tag := range tags {
		tagKey := tagPrefix + tag
		members, err := r.client.SMembers(ctx, tagKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("cache: flush tag %q: %w", tag, err)
		}
		toDelete := append(members, tagKey)
		if err := r.client.Del(ctx, toDelete...).Err(); err != nil {
			return fmt.Errorf("cache: flush tag %q: %w", tag, err)
		}
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping failed: %w", err)
	}
	return nil
}
